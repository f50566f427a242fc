// Package bot — «склейка» вокруг discord, esi, zkill, killfeed и subscription,
// реализующая killbot для EVE Online. Бот:
//   - держит gateway Discord и слушает команды в каналах;
//   - после READY запускает опрос RedisQ (queueID = id аккаунта бота);
//   - каждый киллмейл маршрутизирует и рассылает через killfeed.Processor;
//   - управляет динамическими подписками каналов (!killmail add|del|list);
//   - отвечает на справочные команды по ESI (!status, !char, !price, !jumps,
//     !incursions, !sov);
//   - (опционально) поднимает служебный HTTP с /healthz и /metrics.
//
// Жизненный цикл:
//   - Создать бота через New(cfg, log).
//   - Передать клиентов: SetDiscord(...), SetESI(...), SetStore(...),
//     затем SetKillfeed(...) и (опционально) SetOps(...).
//   - Запустить Start() и остановить Stop().
//
// Пример:
//
//	b := bot.New(cfg, log)
//	b.SetDiscord(cfg.Discord)
//	b.SetESI(cfg.ESI)
//	b.SetStore(store)
//	b.SetKillfeed(cfg.ZKill, cfg.Killmail)
//	b.SetOps(cfg.Ops)               // необязательно
//
//	if err := b.Start(); err != nil { log.Fatal("start", zap.Error(err)) }
//	defer b.Stop()
package bot
