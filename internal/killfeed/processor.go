package killfeed

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/EgorLis/killbot/internal/discord"
	"github.com/EgorLis/killbot/internal/subscription"
	"github.com/EgorLis/killbot/internal/zkill"
)

type Store interface {
	List(ctx context.Context) ([]subscription.Subscription, error)
	DeleteByChannel(ctx context.Context, channelID snowflake.ID) (int64, error)
}

type Sender interface {
	SendEmbed(ctx context.Context, channelID snowflake.ID, e discord.Embed) error
}

type Observer interface {
	ObserveDelivery(mode, result string)
	ObservePruned(n int64)
}

// Processor — zkill.Handler: один киллмейл от ленты до каналов.
type Processor struct {
	router   *Router
	renderer *Renderer
	uni      Universe
	store    Store
	sender   Sender
	log      *zap.Logger
	obs      Observer
}

func NewProcessor(router *Router, uni Universe, store Store, sender Sender, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		router:   router,
		renderer: NewRenderer(uni),
		uni:      uni,
		store:    store,
		sender:   sender,
		log:      log.Named("killfeed"),
	}
}

func (p *Processor) SetObserver(o Observer) { p.obs = o }

// HandleKill маршрутизирует и рассылает ev. Ошибки доставки в отдельный канал
// наружу не выходят: канал чистится, рассылка идёт дальше. Возвращаются только
// сбои ESI и хранилища.
func (p *Processor) HandleKill(ctx context.Context, ev *zkill.KillEvent) error {
	log := p.log.With(zap.Int64("kill_id", ev.KillID))

	loc, err := p.locate(ctx, ev.Killmail.SolarSystemID)
	if err != nil {
		return fmt.Errorf("resolve location: %w", err)
	}
	subs, err := p.store.List(ctx)
	if err != nil {
		return err
	}

	dests := p.router.Match(ev, loc, subs)
	if len(dests) == 0 {
		log.Debug("killmail matched nothing", zap.Float64("value", ev.ZKB.TotalValue))
		return nil
	}

	embeds := make(map[Mode]discord.Embed, 3)
	for _, d := range dests {
		e, ok := embeds[d.Mode]
		if !ok {
			e, err = p.renderer.Render(ctx, ev, d.Mode)
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}
			embeds[d.Mode] = e
		}
		p.deliver(ctx, log, d, e)
	}
	return nil
}

func (p *Processor) deliver(ctx context.Context, log *zap.Logger, d Destination, e discord.Embed) {
	ch := zap.String("channel_id", d.ChannelID.String())

	err := p.sender.SendEmbed(ctx, d.ChannelID, e)
	if err == nil {
		log.Debug("killmail sent", ch, zap.Stringer("mode", d.Mode))
		p.observeDelivery(d.Mode, "ok")
		return
	}
	if ctx.Err() != nil {
		return
	}

	p.observeDelivery(d.Mode, "failed")
	log.Warn("killmail failed to send, removing channel subscriptions", ch, zap.Error(err))

	n, derr := p.store.DeleteByChannel(ctx, d.ChannelID)
	if derr != nil {
		log.Error("remove bad channel", ch, zap.Error(derr))
		return
	}
	if p.obs != nil {
		p.obs.ObservePruned(n)
	}
	log.Info("bad channel removed", ch, zap.Int64("rows", n))
}

// locate: система -> созвездие -> регион. Отсутствующая в ESI система
// даёт частичный Location; ошибки транспорта поднимаются наверх.
func (p *Processor) locate(ctx context.Context, systemID int64) (Location, error) {
	loc := Location{SystemID: systemID}

	sys, err := p.uni.System(ctx, systemID)
	if err != nil {
		return loc, absent(err)
	}
	loc.ConstellationID = sys.ConstellationID

	con, err := p.uni.Constellation(ctx, sys.ConstellationID)
	if err != nil {
		return loc, absent(err)
	}
	loc.RegionID = con.RegionID
	return loc, nil
}

func (p *Processor) observeDelivery(mode Mode, result string) {
	if p.obs != nil {
		p.obs.ObserveDelivery(mode.String(), result)
	}
}

var _ zkill.Handler = (*Processor)(nil)
