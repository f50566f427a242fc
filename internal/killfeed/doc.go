// Package killfeed — обработка одного киллмейла из ленты: маршрутизация по
// каналам (Router), сборка эмбеда (Renderer) и доставка с чисткой мёртвых
// каналов (Processor).
//
// Поток данных:
//
//	zkill.Poller -> Processor.HandleKill
//	    -> esi: система -> созвездие (Location)
//	    -> Router.Match: статические группы, динамические подписки, big kill
//	    -> Renderer.Render (по режиму) -> discord.REST.SendEmbed
//	    -> при ошибке отправки: subscription.Store.DeleteByChannel
//
// Канал получает не больше одного сообщения на киллмейл: первое совпадение
// занимает канал, даже если позже совпало бы более «точное» правило.
package killfeed
