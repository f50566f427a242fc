package bot

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/killbot/internal/config"
	"github.com/EgorLis/killbot/internal/discord"
	"github.com/EgorLis/killbot/internal/subscription"
)

const (
	admin   snowflake.ID = 1
	pilot   snowflake.ID = 2
	channel snowflake.ID = 4242
)

type fakeMessenger struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeMessenger) SendMessage(_ context.Context, _ snowflake.ID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, content)
	return nil
}

func (f *fakeMessenger) SendEmbed(context.Context, snowflake.ID, discord.Embed) error { return nil }

func (f *fakeMessenger) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.msgs) == 0 {
		return ""
	}
	return f.msgs[len(f.msgs)-1]
}

// newTestBot: sqlite в памяти, ESI — routes (путь -> тело), ответы в fakeMessenger.
func newTestBot(t *testing.T, routes map[string]string) (*KillBot, *fakeMessenger) {
	t.Helper()
	cfg := config.Config{Discord: config.DiscordConfig{Prefix: "!", Admins: []snowflake.ID{admin}}}
	b := New(cfg, nil)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	store, err := subscription.Open(config.StoreConfig{Driver: "sqlite", DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	b.SetStore(store)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	b.SetESI(config.ESIConfig{
		BaseURL:   srv.URL,
		FuzzURL:   srv.URL + "/fuzz",
		MarketURL: srv.URL + "/aggregates",
		OAuthURL:  srv.URL + "/verify",
		UserAgent: "killbot-test",
		Timeout:   time.Second,
	})

	fm := &fakeMessenger{}
	b.SetMessenger(fm)
	return b, fm
}

func run(t *testing.T, b *KillBot, author snowflake.ID, text string) error {
	t.Helper()
	return b.HandleCommand(context.Background(), &discord.Message{
		ChannelID: channel,
		GuildID:   77,
		Content:   text,
		Author:    discord.User{ID: author, Username: "tester"},
	})
}

func TestSplitArgs(t *testing.T) {
	assert.Equal(t, []string{"char", "Some Pilot", "min=5"}, splitArgs(`char "Some Pilot" min=5`))
	assert.Empty(t, splitArgs("   "))
}

func TestParseISK(t *testing.T) {
	cases := map[string]float64{
		"1500000":   1.5e6,
		"1,500,000": 1.5e6,
		"750k":      7.5e5,
		"1.5m":      1.5e6,
		"2B":        2e9,
	}
	for in, want := range cases {
		got, err := parseISK(in)
		require.NoError(t, err, in)
		assert.InDelta(t, want, got, 0.001, in)
	}
	_, err := parseISK("lots")
	assert.Error(t, err)
	_, err = parseISK("-5m")
	assert.Error(t, err)
}

func TestHelpAndUnknown(t *testing.T) {
	b, fm := newTestBot(t, nil)

	require.NoError(t, run(t, b, pilot, "!help"))
	assert.Contains(t, fm.last(), "!killmail add <region|system|group|character|loss|any>")

	assert.EqualError(t, run(t, b, pilot, "!warp"), "unknown command. try !help")
	require.NoError(t, run(t, b, pilot, "just chatting"))
	assert.Len(t, fm.msgs, 1)
}

func TestKillmailLifecycle(t *testing.T) {
	b, fm := newTestBot(t, nil)

	require.NoError(t, run(t, b, pilot, "!killmail list"))
	assert.Equal(t, "subscriptions: (empty)", fm.last())

	require.NoError(t, run(t, b, admin, "!killmail add region 10000002 min=1.5b"))
	assert.Equal(t, "added #1 region 10000002 min=1,500,000,000 ISK", fm.last())

	require.NoError(t, run(t, b, admin, "!killmail add any min=5b"))
	assert.Equal(t, "added #2 any min=5,000,000,000 ISK", fm.last())

	require.NoError(t, run(t, b, admin, "!killmail add group 99000001 loss=true"))
	assert.Equal(t, "added #3 group 99000001 +losses", fm.last())

	require.NoError(t, run(t, b, admin, "!killmail add loss 98000001"))
	assert.Equal(t, "added #4 loss 98000001", fm.last())

	require.NoError(t, run(t, b, pilot, "!killmail list"))
	assert.Equal(t, "subscriptions:\n"+
		"#1 region 10000002 min=1,500,000,000 ISK\n"+
		"#2 any min=5,000,000,000 ISK\n"+
		"#3 group 99000001 +losses\n"+
		"#4 loss 98000001", fm.last())

	subs, err := b.store.ListByChannel(context.Background(), channel)
	require.NoError(t, err)
	require.Len(t, subs, 4)
	assert.Equal(t, snowflake.ID(77), subs[0].GuildID)
	assert.True(t, subs[3].Loss)

	require.NoError(t, run(t, b, admin, "!killmail del 2"))
	assert.Equal(t, "removed subscription #2", fm.last())
	assert.EqualError(t, run(t, b, admin, "!killmail del 2"), "subscription #2 not found in this channel")

	require.NoError(t, run(t, b, admin, "!killmail del"))
	assert.Equal(t, "removed 3 subscription(s)", fm.last())
}

func TestKillmailAdminOnly(t *testing.T) {
	b, _ := newTestBot(t, nil)

	assert.ErrorIs(t, run(t, b, pilot, "!killmail add region 10000002"), errAdminOnly)
	assert.ErrorIs(t, run(t, b, pilot, "!killmail del"), errAdminOnly)
	assert.Error(t, run(t, b, admin, "!killmail add planet 1"))
	assert.Error(t, run(t, b, admin, "!killmail add region"))
	assert.Error(t, run(t, b, admin, "!killmail add region 1 min=abc"))
}

func TestKillmailAddByName(t *testing.T) {
	b, fm := newTestBot(t, map[string]string{
		"/search/": `{"solar_system":[30000142]}`,
	})

	require.NoError(t, run(t, b, admin, `!killmail add system "Jita"`))
	assert.Equal(t, "added #1 system 30000142", fm.last())
}

func TestKillmailAddByNameNotFound(t *testing.T) {
	b, _ := newTestBot(t, map[string]string{
		"/search/": `{}`,
	})
	assert.EqualError(t, run(t, b, admin, `!killmail add group "No Such Corp"`), `group "No Such Corp" not found`)
}

func TestStatus(t *testing.T) {
	b, fm := newTestBot(t, map[string]string{
		"/status/": `{"players":23456,"server_version":"2345678","start_time":"2024-05-01T11:00:00Z"}`,
	})

	require.NoError(t, run(t, b, pilot, "!status"))
	assert.Equal(t, "Tranquility: 23,456 players online (version 2345678), up since 2024-05-01 11:00 EVE", fm.last())
}

func TestJumps(t *testing.T) {
	b, fm := newTestBot(t, map[string]string{
		"/search/":                    `{"solar_system":[30000142]}`,
		"/universe/systems/30000142/": `{"system_id":30000142,"constellation_id":20000020,"name":"Jita"}`,
		"/universe/system_jumps/":     `[{"system_id":30000001,"ship_jumps":3},{"system_id":30000142,"ship_jumps":1234}]`,
	})

	require.NoError(t, run(t, b, pilot, "!jumps jita"))
	assert.Equal(t, "Jita: 1,234 jumps in the last hour", fm.last())
}

func TestCharLookup(t *testing.T) {
	b, fm := newTestBot(t, map[string]string{
		"/search/":                `{"character":[90000001]}`,
		"/characters/90000001/":   `{"name":"Some Pilot","corporation_id":98000001,"alliance_id":99000001,"birthday":"2010-03-04T05:06:07Z","security_status":-1.234}`,
		"/corporations/98000001/": `{"name":"Some Corp","ticker":"SC","ceo_id":1,"member_count":10}`,
		"/alliances/99000001/":    `{"name":"Some Alliance","ticker":"SA","date_founded":"2012-01-01T00:00:00Z"}`,
	})

	require.NoError(t, run(t, b, pilot, `!char "Some Pilot"`))
	assert.Equal(t, "**Some Pilot**\n"+
		"Corp: Some Corp [SC]\n"+
		"Alliance: Some Alliance [SA]\n"+
		"Security: -1.23\n"+
		"Born: 2010-03-04\n"+
		"zKill: https://zkillboard.com/character/90000001/", fm.last())

	assert.EqualError(t, run(t, b, pilot, "!char"), "usage: !char <name>")
}

func TestIncursionsEmpty(t *testing.T) {
	b, fm := newTestBot(t, map[string]string{"/incursions/": `[]`})
	require.NoError(t, run(t, b, pilot, "!incursions"))
	assert.Equal(t, "no active incursions", fm.last())
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", maxMessage+10)
	assert.Len(t, truncate(long), maxMessage)
	assert.Equal(t, "short", truncate("short"))
}
