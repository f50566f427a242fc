// Package discord реализует минимальный клиент Discord для бота:
// WebSocket-шлюз (gateway v10, JSON) и REST для отправки сообщений.
//
// Шлюз подключается, получает Hello, шлёт Identify (или Resume после обрыва),
// держит heartbeat и переподключается с экспоненциальным backoff (1s..30s).
// READY фиксирует id аккаунта бота и открывает WaitReady; MESSAGE_CREATE
// уходит в колбэк OnMessage.
//
// События (колбэки поля структуры):
//   - OnConnecting, OnReady, OnMessage, OnDisconnected, OnError.
//
// Пример:
//
//	gw := discord.NewGateway(cfg.GatewayURL, cfg.Token, cfg.Intents, log)
//	gw.OnMessage = func(m *discord.Message) { ... }
//	if err := gw.Connect(ctx); err != nil { log.Fatal(err) }
//	defer gw.Disconnect()
//
//	id, _ := gw.WaitReady(ctx) // id аккаунта бота
//
//	rest := discord.NewREST(cfg.APIURL, cfg.Token, 10*time.Second)
//	_ = rest.SendEmbed(ctx, channelID, discord.Embed{Title: "hi"})
package discord
