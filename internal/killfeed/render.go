package killfeed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/EgorLis/killbot/internal/discord"
	"github.com/EgorLis/killbot/internal/esi"
	"github.com/EgorLis/killbot/internal/zkill"
)

const (
	zkillURL  = "https://zkillboard.com"
	imageURL  = "https://image.eveonline.com/Type/%d_64.png"
	footer    = "Killboard data sourced from ZKill"
	bigPrefix = "BIG KILL REPORTED: "
)

// Universe — то, что рендеру и процессору нужно от esi.Client.
type Universe interface {
	System(ctx context.Context, id int64, opts ...esi.FetchOption) (*esi.System, error)
	Constellation(ctx context.Context, id int64, opts ...esi.FetchOption) (*esi.Constellation, error)
	Type(ctx context.Context, id int64, opts ...esi.FetchOption) (*esi.Type, error)
	Character(ctx context.Context, id int64, opts ...esi.FetchOption) (*esi.Character, error)
	Corporation(ctx context.Context, id int64, opts ...esi.FetchOption) (*esi.Corporation, error)
	Alliance(ctx context.Context, id int64, opts ...esi.FetchOption) (*esi.Alliance, error)
	Celestial(ctx context.Context, id int64, opts ...esi.FetchOption) esi.Celestial
}

type Renderer struct {
	uni Universe
}

func NewRenderer(uni Universe) *Renderer {
	return &Renderer{uni: uni}
}

// link — markdown-ссылка на страницу zKillboard.
type link struct {
	name string
	url  string
}

func (l *link) String() string {
	return fmt.Sprintf("[%s](%s)", l.name, l.url)
}

// Render собирает эмбед для режима mode. Отсутствующие сущности (ErrNotFound)
// просто выпадают из текста; ошибку возвращают только сбои транспорта.
func (r *Renderer) Render(ctx context.Context, ev *zkill.KillEvent, mode Mode) (discord.Embed, error) {
	km := ev.Killmail
	killURL := fmt.Sprintf("%s/kill/%d/", zkillURL, ev.KillID)

	ship, err := r.typeName(ctx, km.Victim.ShipTypeID)
	if err != nil {
		return discord.Embed{}, err
	}
	if ship == "" {
		ship = "Unknown"
	}

	systemName := "Unknown"
	sys, err := r.uni.System(ctx, km.SolarSystemID)
	switch {
	case err == nil && sys.Name != "":
		systemName = sys.Name
	case err != nil && !errors.Is(err, esi.ErrNotFound):
		return discord.Embed{}, err
	}
	// wormhole-системы (J123-...) пишем капсом
	if strings.Contains(systemName, "-") {
		systemName = strings.ToUpper(systemName)
	}

	title := fmt.Sprintf("%s Destroyed in %s", ship, systemName)
	color := discord.ColorSuccess
	switch mode {
	case ModeBig:
		title = bigPrefix + title
		color = discord.ColorInfo
	case ModeLoss:
		color = discord.ColorError
	}

	e := discord.Embed{
		Title:     title,
		URL:       killURL,
		Color:     color,
		Footer:    &discord.EmbedFooter{Text: footer},
		Thumbnail: &discord.EmbedThumbnail{URL: fmt.Sprintf(imageURL, km.Victim.ShipTypeID)},
	}

	if err := r.victimField(ctx, &e, km.Victim); err != nil {
		return discord.Embed{}, err
	}
	if fb := ev.FinalBlow(); fb != nil {
		if err := r.finalBlowField(ctx, &e, fb); err != nil {
			return discord.Embed{}, err
		}
	}
	r.detailsField(ctx, &e, ev, killURL)
	return e, nil
}

func (r *Renderer) victimField(ctx context.Context, e *discord.Embed, v zkill.Victim) error {
	char, err := r.character(ctx, v.CharacterID)
	if err != nil {
		return err
	}
	corp, err := r.corporation(ctx, v.CorporationID)
	if err != nil {
		return err
	}
	alliance, err := r.alliance(ctx, v.AllianceID)
	if err != nil {
		return err
	}

	var lines []string
	name := "Kill Info"
	if char != nil {
		name = "Victim"
		lines = append(lines, "Name: "+char.String())
	}
	if corp != nil {
		lines = append(lines, "Corp: "+corp.String())
	}
	if alliance != nil {
		lines = append(lines, "Alliance: "+alliance.String())
	}
	if len(lines) == 0 {
		lines = append(lines, "Unknown")
	}
	e.AddField(name, strings.Join(lines, "\n"), false)
	return nil
}

// finalBlowField: с персонажем — Name/Ship/Corp[/Alliance],
// без персонажа (структура, NPC) — Structure/Corp[/Alliance].
func (r *Renderer) finalBlowField(ctx context.Context, e *discord.Embed, a *zkill.Attacker) error {
	char, err := r.character(ctx, a.CharacterID)
	if err != nil {
		return err
	}
	ship := &link{name: "UNK", url: zkillURL + "/ship/1/"}
	if id, ok := zkill.ID(a.ShipTypeID); ok {
		name, err := r.typeName(ctx, id)
		if err != nil {
			return err
		}
		if name != "" {
			ship = &link{name: name, url: fmt.Sprintf("%s/ship/%d/", zkillURL, id)}
		}
	}
	corp, err := r.corporation(ctx, a.CorporationID)
	if err != nil {
		return err
	}
	alliance, err := r.alliance(ctx, a.AllianceID)
	if err != nil {
		return err
	}

	var lines []string
	if char != nil {
		lines = append(lines, "Name: "+char.String(), "Ship: "+ship.String())
	} else {
		lines = append(lines, "Structure: "+ship.String())
	}
	if corp != nil {
		lines = append(lines, "Corp: "+corp.String())
	}
	if alliance != nil {
		lines = append(lines, "Alliance: "+alliance.String())
	}
	e.AddField("Final Blow", strings.Join(lines, "\n"), false)
	return nil
}

func (r *Renderer) detailsField(ctx context.Context, e *discord.Embed, ev *zkill.KillEvent, killURL string) {
	var lines []string
	switch {
	case ev.ZKB.Awox:
		lines = append(lines, "**~Possible AWOX~**")
	case ev.ZKB.Solo:
		lines = append(lines, "**~Solo kill~**")
	}

	celestial := "Unknown"
	if ev.ZKB.LocationID != 0 {
		if c := r.uni.Celestial(ctx, ev.ZKB.LocationID); c.Name != "" {
			celestial = c.Name
		}
	}

	lines = append(lines,
		"Time: "+ev.Killmail.Time.UTC().Format("15:04")+" EVE",
		"Value: "+humanize.FormatFloat("#,###.##", ev.ZKB.TotalValue)+" ISK",
		"Nearest Celestial: "+celestial,
		fmt.Sprintf("[zKill Link](%s)", killURL),
	)
	e.AddField("Details", strings.Join(lines, "\n"), false)
}

func (r *Renderer) typeName(ctx context.Context, id int64) (string, error) {
	t, err := r.uni.Type(ctx, id)
	if err != nil {
		return "", absent(err)
	}
	return t.Name, nil
}

func (r *Renderer) character(ctx context.Context, p *int64) (*link, error) {
	id, ok := zkill.ID(p)
	if !ok {
		return nil, nil
	}
	c, err := r.uni.Character(ctx, id)
	if err != nil || c.Name == "" {
		return nil, absent(err)
	}
	return &link{name: c.Name, url: fmt.Sprintf("%s/character/%d/", zkillURL, id)}, nil
}

func (r *Renderer) corporation(ctx context.Context, p *int64) (*link, error) {
	id, ok := zkill.ID(p)
	if !ok {
		return nil, nil
	}
	c, err := r.uni.Corporation(ctx, id)
	if err != nil || c.Name == "" {
		return nil, absent(err)
	}
	return &link{name: c.Name, url: fmt.Sprintf("%s/corporation/%d/", zkillURL, id)}, nil
}

func (r *Renderer) alliance(ctx context.Context, p *int64) (*link, error) {
	id, ok := zkill.ID(p)
	if !ok {
		return nil, nil
	}
	a, err := r.uni.Alliance(ctx, id)
	if err != nil || a.Name == "" {
		return nil, absent(err)
	}
	return &link{name: a.Name, url: fmt.Sprintf("%s/alliance/%d/", zkillURL, id)}, nil
}

// absent гасит ErrNotFound: отсутствие сущности — не ошибка рендера.
func absent(err error) error {
	if err == nil || errors.Is(err, esi.ErrNotFound) {
		return nil
	}
	return err
}
