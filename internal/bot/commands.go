package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/EgorLis/killbot/internal/discord"
	"github.com/EgorLis/killbot/internal/esi"
	"github.com/EgorLis/killbot/internal/subscription"
)

// Jita IV - Moon 4 - Caldari Navy Assembly Plant
const jitaStation = 60003760

// лимит длины сообщения Discord
const maxMessage = 2000

// сплит с поддержкой кавычек: !char "Some Pilot"
var reArg = regexp.MustCompile(`"([^"]*)"|(\S+)`)

var errAdminOnly = errors.New("permission denied: admin only")

func helpText(p string) string {
	return strings.Join([]string{
		p + "help",
		p + "killmail add <region|system|group|character|loss|any> <id|name> [min=<isk>] [loss=true]",
		p + "killmail del [id]",
		p + "killmail list",
		p + "status",
		p + "char <name>",
		p + "price <item>",
		p + "jumps <system>",
		p + "incursions",
		p + "sov",
	}, "\n")
}

// HandleCommand разбирает и выполняет команду из m. Ошибка отдаётся
// вызывающему: он отвечает в канал "err: ...".
func (bot *KillBot) HandleCommand(ctx context.Context, m *discord.Message) (err error) {
	prefix := bot.cfg.Discord.Prefix
	text := strings.TrimSpace(m.Content)
	if !strings.HasPrefix(text, prefix) {
		return nil
	}
	fields := splitArgs(strings.TrimPrefix(text, prefix))
	if len(fields) == 0 {
		return nil
	}
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	label := cmd
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		bot.metrics.ObserveCommand(label, result)
	}()

	say := func(s string) error {
		return bot.msg.SendMessage(ctx, m.ChannelID, truncate(s))
	}

	switch cmd {
	case "help":
		return say(helpText(prefix))

	// ---------- KILLMAIL ----------
	case "killmail", "km":
		label = "killmail"
		if len(args) == 0 {
			return fmt.Errorf("usage: %skillmail add|del|list", prefix)
		}
		switch strings.ToLower(args[0]) {
		case "list":
			return bot.killmailList(ctx, m, say)
		case "add":
			if !bot.cfg.Discord.IsAdmin(m.Author.ID) {
				return errAdminOnly
			}
			return bot.killmailAdd(ctx, m, args[1:], say)
		case "del", "rm":
			if !bot.cfg.Discord.IsAdmin(m.Author.ID) {
				return errAdminOnly
			}
			return bot.killmailDel(ctx, m, args[1:], say)
		default:
			return fmt.Errorf("usage: %skillmail add|del|list", prefix)
		}

	// ---------- ESI ----------
	case "status":
		st, err := bot.esi.Status(ctx)
		if err != nil {
			return fmt.Errorf("server status unavailable: %w", err)
		}
		return say(fmt.Sprintf("Tranquility: %s players online (version %s), up since %s EVE",
			humanize.Comma(int64(st.Players)), st.ServerVersion, st.StartTime.UTC().Format("2006-01-02 15:04")))

	case "char":
		if len(args) == 0 {
			return fmt.Errorf("usage: %schar <name>", prefix)
		}
		return bot.charLookup(ctx, strings.Join(args, " "), say)

	case "price":
		if len(args) == 0 {
			return fmt.Errorf("usage: %sprice <item>", prefix)
		}
		name := strings.Join(args, " ")
		_, agg, err := bot.esi.MarketData(ctx, name, jitaStation)
		if err != nil {
			return notFound(err, "item %q", name)
		}
		return say(fmt.Sprintf("%s @ Jita\nSell min: %s ISK (%s orders)\nBuy max: %s ISK (%s orders)",
			name,
			isk(agg.Sell.Min), humanize.Comma(agg.Sell.OrderCount),
			isk(agg.Buy.Max), humanize.Comma(agg.Buy.OrderCount)))

	case "jumps":
		if len(args) == 0 {
			return fmt.Errorf("usage: %sjumps <system>", prefix)
		}
		name := strings.Join(args, " ")
		ids, err := bot.esi.Search(ctx, name, "solar_system", true)
		if err != nil {
			return notFound(err, "system %q", name)
		}
		if len(ids) == 0 {
			return fmt.Errorf("system %q not found", name)
		}
		if sys, err := bot.esi.System(ctx, ids[0]); err == nil {
			name = sys.Name
		}
		n, err := bot.esi.ShipJumps(ctx, ids[0])
		if err != nil {
			return err
		}
		return say(fmt.Sprintf("%s: %s jumps in the last hour", name, humanize.Comma(int64(n))))

	case "incursions":
		return bot.incursions(ctx, say)

	case "sov":
		return bot.sovCampaigns(ctx, say)

	default:
		label = "unknown"
		return fmt.Errorf("unknown command. try %shelp", prefix)
	}
}

func (bot *KillBot) killmailList(ctx context.Context, m *discord.Message, say func(string) error) error {
	subs, err := bot.store.ListByChannel(ctx, m.ChannelID)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return say("subscriptions: (empty)")
	}
	rows := make([]string, 0, len(subs))
	for _, s := range subs {
		rows = append(rows, describe(s))
	}
	return say("subscriptions:\n" + strings.Join(rows, "\n"))
}

// !killmail add <kind> <id|name> [min=<isk>] [loss=true]
func (bot *KillBot) killmailAdd(ctx context.Context, m *discord.Message, args []string, say func(string) error) error {
	usage := fmt.Errorf("usage: %skillmail add <region|system|group|character|loss|any> <id|name> [min=<isk>] [loss=true]", bot.cfg.Discord.Prefix)
	if len(args) == 0 {
		return usage
	}
	kind, err := subscription.ParseKind(args[0])
	if err != nil {
		return err
	}

	var target []string
	var opts []string
	for _, a := range args[1:] {
		if strings.Contains(a, "=") {
			opts = append(opts, a)
		} else {
			target = append(target, a)
		}
	}
	kv := parseKV(opts)

	sub := subscription.Subscription{
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Kind:      kind,
		Loss:      kind == subscription.KindLoss || strings.EqualFold(kv["loss"], "true"),
	}
	if v, ok := kv["min"]; ok {
		if sub.MinValue, err = parseISK(v); err != nil {
			return err
		}
	}
	if kind != subscription.KindAny {
		if len(target) == 0 {
			return usage
		}
		if sub.TargetID, err = bot.resolveTarget(ctx, kind, strings.Join(target, " ")); err != nil {
			return err
		}
	}

	sub, err = bot.store.Add(ctx, sub)
	if err != nil {
		return err
	}
	return say("added " + describe(sub))
}

// !killmail del [id] — без id удаляет все подписки канала.
func (bot *KillBot) killmailDel(ctx context.Context, m *discord.Message, args []string, say func(string) error) error {
	if len(args) == 0 {
		n, err := bot.store.DeleteByChannel(ctx, m.ChannelID)
		if err != nil {
			return err
		}
		return say(fmt.Sprintf("removed %d subscription(s)", n))
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil {
		return fmt.Errorf("bad subscription id %q", args[0])
	}
	if err := bot.store.DeleteByID(ctx, m.ChannelID, id); err != nil {
		if errors.Is(err, subscription.ErrNotFound) {
			return fmt.Errorf("subscription #%d not found in this channel", id)
		}
		return err
	}
	return say(fmt.Sprintf("removed subscription #%d", id))
}

// resolveTarget: число — как есть, иначе строгий поиск по ESI.
func (bot *KillBot) resolveTarget(ctx context.Context, kind subscription.Kind, arg string) (int64, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil && id > 0 {
		return id, nil
	}
	var categories []string
	switch kind {
	case subscription.KindRegion:
		categories = []string{"region"}
	case subscription.KindSystem:
		categories = []string{"solar_system"}
	case subscription.KindCharacter:
		categories = []string{"character"}
	default:
		categories = []string{"corporation", "alliance"}
	}
	for _, c := range categories {
		ids, err := bot.esi.Search(ctx, arg, c, true)
		if errors.Is(err, esi.ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if len(ids) > 0 {
			return ids[0], nil
		}
	}
	return 0, fmt.Errorf("%s %q not found", kind, arg)
}

func (bot *KillBot) charLookup(ctx context.Context, name string, say func(string) error) error {
	ids, err := bot.esi.Search(ctx, name, "character", true)
	if err != nil {
		return notFound(err, "character %q", name)
	}
	if len(ids) == 0 {
		return fmt.Errorf("character %q not found", name)
	}
	id := ids[0]
	ch, err := bot.esi.Character(ctx, id)
	if err != nil {
		return notFound(err, "character %q", name)
	}

	lines := []string{"**" + ch.Name + "**"}
	if corp, err := bot.esi.Corporation(ctx, ch.CorporationID); err == nil {
		lines = append(lines, fmt.Sprintf("Corp: %s [%s]", corp.Name, corp.Ticker))
	}
	if ch.AllianceID != 0 {
		if a, err := bot.esi.Alliance(ctx, ch.AllianceID); err == nil {
			lines = append(lines, fmt.Sprintf("Alliance: %s [%s]", a.Name, a.Ticker))
		}
	}
	lines = append(lines,
		fmt.Sprintf("Security: %.2f", ch.SecurityStatus),
		"Born: "+ch.Birthday.UTC().Format("2006-01-02"),
		fmt.Sprintf("zKill: https://zkillboard.com/character/%d/", id),
	)
	return say(strings.Join(lines, "\n"))
}

func (bot *KillBot) incursions(ctx context.Context, say func(string) error) error {
	list, err := bot.esi.Incursions(ctx)
	if err != nil {
		return notFound(err, "incursions")
	}
	if len(list) == 0 {
		return say("no active incursions")
	}
	rows := []string{"incursions:"}
	for _, in := range list {
		where := strconv.FormatInt(in.ConstellationID, 10)
		if c, err := bot.esi.Constellation(ctx, in.ConstellationID); err == nil {
			where = c.Name
		}
		staging := strconv.FormatInt(in.StagingSolarSystemID, 10)
		if n, err := bot.esi.SystemName(ctx, in.StagingSolarSystemID); err == nil {
			staging = n
		}
		boss := ""
		if in.HasBoss {
			boss = ", boss spawned"
		}
		rows = append(rows, fmt.Sprintf("%s: %s (staging %s), influence %.0f%%%s",
			in.State, where, staging, in.Influence*100, boss))
	}
	return say(strings.Join(rows, "\n"))
}

func (bot *KillBot) sovCampaigns(ctx context.Context, say func(string) error) error {
	list, err := bot.esi.SovCampaigns(ctx)
	if err != nil {
		return notFound(err, "sov campaigns")
	}
	if len(list) == 0 {
		return say("no active sov campaigns")
	}
	rows := []string{fmt.Sprintf("sov campaigns (%d):", len(list))}
	for i, c := range list {
		if i == 10 {
			rows = append(rows, fmt.Sprintf("... and %d more", len(list)-10))
			break
		}
		system := strconv.FormatInt(c.SolarSystemID, 10)
		if n, err := bot.esi.SystemName(ctx, c.SolarSystemID); err == nil {
			system = n
		}
		rows = append(rows, fmt.Sprintf("%s in %s, starts %s EVE (defender %.0f%%, attackers %.0f%%)",
			c.EventType, system, c.StartTime.UTC().Format("01-02 15:04"),
			c.DefenderScore*100, c.AttackersScore*100))
	}
	return say(strings.Join(rows, "\n"))
}

func describe(s subscription.Subscription) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s", s.ID, s.Kind)
	if s.Kind != subscription.KindAny {
		fmt.Fprintf(&b, " %d", s.TargetID)
	}
	if s.MinValue > 0 {
		fmt.Fprintf(&b, " min=%s ISK", humanize.Comma(int64(s.MinValue)))
	}
	if s.Loss && s.Kind != subscription.KindLoss {
		b.WriteString(" +losses")
	}
	return b.String()
}

func isk(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

// parseISK понимает 1500000, 1.5m, 2b, 750k.
func parseISK(s string) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, ",", "")))
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "k"):
		mult, s = 1e3, strings.TrimSuffix(s, "k")
	case strings.HasSuffix(s, "m"):
		mult, s = 1e6, strings.TrimSuffix(s, "m")
	case strings.HasSuffix(s, "b"):
		mult, s = 1e9, strings.TrimSuffix(s, "b")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("bad isk value %q", s)
	}
	return v * mult, nil
}

// notFound превращает esi.ErrNotFound в человекочитаемое «не найдено».
func notFound(err error, format string, a ...any) error {
	if errors.Is(err, esi.ErrNotFound) {
		return fmt.Errorf(format+" not found", a...)
	}
	return err
}

func truncate(s string) string {
	if len(s) <= maxMessage {
		return s
	}
	return strings.ToValidUTF8(s[:maxMessage-3], "") + "..."
}

func splitArgs(s string) []string {
	var out []string
	for _, m := range reArg.FindAllStringSubmatch(s, -1) {
		if m[1] != "" {
			out = append(out, m[1])
		} else {
			out = append(out, m[2])
		}
	}
	return out
}

func parseKV(args []string) map[string]string {
	res := map[string]string{}
	for _, a := range args {
		kv := strings.SplitN(a, "=", 2)
		if len(kv) == 2 {
			res[strings.ToLower(kv[0])] = kv[1]
		}
	}
	return res
}
