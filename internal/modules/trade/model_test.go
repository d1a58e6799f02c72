package trade

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside/leaguecore/internal/domain"
)

func TestParseDeal_BilateralInfersToTeam(t *testing.T) {
	raw := []byte(`{
		"teams": ["BOS", "LAL"],
		"legs": {
			"BOS": [{"kind": "player", "player_id": "P000001"}],
			"LAL": [{"kind": "pick", "pick_id": "2026_R1_LAL"}]
		}
	}`)
	deal, err := ParseDeal(raw)
	require.NoError(t, err)
	assert.Equal(t, "LAL", deal.Legs["BOS"][0].ToTeam)
	assert.Equal(t, "BOS", deal.Legs["LAL"][0].ToTeam)
}

func TestParseDeal_MultiTeamRequiresToTeam(t *testing.T) {
	raw := []byte(`{
		"teams": ["BOS", "LAL", "MIA"],
		"legs": {
			"BOS": [{"kind": "player", "player_id": "P000001"}]
		}
	}`)
	_, err := ParseDeal(raw)
	assert.True(t, domain.IsCode(err, domain.ErrMissingToTeam), "got %v", err)
}

func TestParseDeal_RejectsInvalidShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		code domain.ErrorCode
	}{
		{
			name: "one team",
			raw:  `{"teams": ["BOS"], "legs": {}}`,
			code: domain.ErrInvalidInput,
		},
		{
			name: "duplicate team",
			raw:  `{"teams": ["BOS", "BOS"], "legs": {}}`,
			code: domain.ErrInvalidInput,
		},
		{
			name: "unknown asset kind",
			raw: `{"teams": ["BOS", "LAL"],
				"legs": {"BOS": [{"kind": "mascot", "player_id": "P000001"}]}}`,
			code: domain.ErrInvalidInput,
		},
		{
			name: "bad player id",
			raw: `{"teams": ["BOS", "LAL"],
				"legs": {"BOS": [{"kind": "player", "player_id": "not an id"}]}}`,
			code: domain.ErrInvalidPlayerID,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDeal([]byte(tt.raw))
			assert.True(t, domain.IsCode(err, tt.code), "want %s, got %v", tt.code, err)
		})
	}
}

func TestParseDeal_ProtectionNeedsCompensationValue(t *testing.T) {
	raw := []byte(`{
		"teams": ["BOS", "LAL"],
		"legs": {
			"BOS": [{
				"kind": "pick", "pick_id": "2027_R1_BOS",
				"protection": {"type": "TOP_N", "n": 10, "compensation": {"label": "two seconds"}}
			}]
		}
	}`)
	_, err := ParseDeal(raw)
	assert.True(t, domain.IsCode(err, domain.ErrProtectionInvalid), "got %v", err)

	raw = bytes.Replace(raw, []byte(`"label": "two seconds"`),
		[]byte(`"label": "two seconds", "value": 2`), 1)
	_, err = ParseDeal(raw)
	assert.NoError(t, err)
}

func TestParseDeal_SwapIDMustMatchPair(t *testing.T) {
	raw := []byte(`{
		"teams": ["BOS", "LAL"],
		"legs": {
			"BOS": [{
				"kind": "swap", "swap_id": "SWAP_SOMETHING_ELSE",
				"pick_id_a": "2026_R1_BOS", "pick_id_b": "2026_R1_LAL"
			}]
		}
	}`)
	_, err := ParseDeal(raw)
	assert.True(t, domain.IsCode(err, domain.ErrSwapInvalid), "got %v", err)
}

func TestCanonicalJSON_IsOrderIndependent(t *testing.T) {
	a := []byte(`{
		"teams": ["LAL", "BOS"],
		"legs": {
			"BOS": [
				{"kind": "pick", "pick_id": "2026_R1_BOS"},
				{"kind": "player", "player_id": "P000002"},
				{"kind": "player", "player_id": "P000001"}
			],
			"LAL": [{"kind": "player", "player_id": "P000003"}]
		}
	}`)
	b := []byte(`{
		"teams": ["BOS", "LAL"],
		"legs": {
			"LAL": [{"kind": "player", "player_id": "P000003"}],
			"BOS": [
				{"kind": "player", "player_id": "P000001"},
				{"kind": "player", "player_id": "P000002"},
				{"kind": "pick", "pick_id": "2026_R1_BOS"}
			]
		}
	}`)

	dealA, err := ParseDeal(a)
	require.NoError(t, err)
	dealB, err := ParseDeal(b)
	require.NoError(t, err)

	jsonA, err := CanonicalJSON(dealA)
	require.NoError(t, err)
	jsonB, err := CanonicalJSON(dealB)
	require.NoError(t, err)
	assert.Equal(t, jsonA, jsonB)

	canon := Canonicalize(dealA)
	assert.Equal(t, []string{"BOS", "LAL"}, canon.Teams)
	leg := canon.Legs["BOS"]
	require.Len(t, leg, 3)
	assert.Equal(t, KindPlayer, leg[0].Kind)
	assert.Equal(t, "P000001", leg[0].PlayerID)
	assert.Equal(t, KindPick, leg[2].Kind)
}

func TestAssetKey(t *testing.T) {
	tests := []struct {
		asset Asset
		want  string
	}{
		{Asset{Kind: KindPlayer, PlayerID: "P000001"}, "player:P000001"},
		{Asset{Kind: KindPick, PickID: "2026_R1_BOS"}, "pick:2026_R1_BOS"},
		{Asset{Kind: KindSwap, SwapID: "SWAP_X"}, "swap:SWAP_X"},
		{Asset{Kind: KindFixedAsset, AssetID: "CASH_1"}, "fixed_asset:CASH_1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.asset.Key())
	}
}
