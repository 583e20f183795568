package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameStateJSONRoundTrip(t *testing.T) {
	t.Parallel()
	g, cur := dealtGame(t, "8sTd8d9c3h2c", "alice", "bob")
	g.Players.Players[0].BetID = "bet-1"
	_, err := Split(g, "alice", 0, cur, testNow)
	require.NoError(t, err)

	data, err := json.Marshal(g)
	require.NoError(t, err)

	var raw struct {
		Players []struct {
			PlayerID string `json:"playerId"`
		} `json:"players"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw.Players, 3)
	assert.Equal(t, DealerID, raw.Players[2].PlayerID)

	var out GameState
	require.NoError(t, json.Unmarshal(data, &out))
	again, err := json.Marshal(&out)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
	assert.Equal(t, g.Players.DealerHand().Cards, out.Players.DealerHand().Cards)
}

func TestTableUnmarshalRejectsBadDealerSeat(t *testing.T) {
	tests := map[string]string{
		"empty":           `[]`,
		"dealer not last": `[{"playerId":"dealer","hands":[]},{"playerId":"alice","hands":[]}]`,
		"no dealer":       `[{"playerId":"alice","hands":[]}]`,
		"two dealers":     `[{"playerId":"dealer","hands":[]},{"playerId":"dealer","hands":[]}]`,
		"dealer wager":    `[{"playerId":"dealer","hands":[{"cards":[],"actions":[],"handIndex":0,"wager":{"type":"main","amount":"1","sides":[]}}]}]`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			var table Table
			require.ErrorIs(t, json.Unmarshal([]byte(doc), &table), ErrInvalidTable)
		})
	}
}
