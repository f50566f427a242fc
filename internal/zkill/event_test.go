package zkill

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	ev := Decode([]byte(`{"package":` + sampleKill + `}`))
	require.NotNil(t, ev)

	assert.Equal(t, int64(118000001), ev.KillID)
	assert.Equal(t, time.Date(2024, 5, 1, 18, 42, 17, 0, time.UTC), ev.Killmail.Time)
	assert.Equal(t, int64(31000005), ev.Killmail.SolarSystemID)
	assert.Equal(t, 2e9, ev.ZKB.TotalValue)
	assert.True(t, ev.ZKB.Awox)
	assert.Equal(t, int64(40000001), ev.ZKB.LocationID)

	v := ev.Killmail.Victim
	require.NotNil(t, v.CharacterID)
	assert.Equal(t, int64(90000001), *v.CharacterID)
	assert.Nil(t, v.AllianceID)

	require.Len(t, ev.Killmail.Attackers, 2)
	assert.Nil(t, ev.Killmail.Attackers[1].CharacterID)

	fb := ev.FinalBlow()
	require.NotNil(t, fb)
	id, ok := ID(fb.CorporationID)
	assert.True(t, ok)
	assert.Equal(t, int64(98000011), id)
}

func TestDecodeNoEvent(t *testing.T) {
	for name, body := range map[string]string{
		"garbage":      `<html>502</html>`,
		"null package": `{"package":null}`,
		"no package":   `{}`,
		"no killID":    `{"package":{"zkb":{"totalValue":1}}}`,
		"bad package":  `{"package":[1,2,3]}`,
	} {
		t.Run(name, func(t *testing.T) {
			assert.Nil(t, Decode([]byte(body)))
		})
	}
}

func TestFinalBlowMissing(t *testing.T) {
	ev := &KillEvent{Killmail: Killmail{Attackers: []Attacker{{}, {}}}}
	assert.Nil(t, ev.FinalBlow())

	_, ok := ID(nil)
	assert.False(t, ok)
}
