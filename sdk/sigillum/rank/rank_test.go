package rank

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestHashIsKeccakOfName(t *testing.T) {
	require.Equal(t, crypto.Keccak256Hash([]byte("PREFECTUS_RANK")), Prefectus.Hash())
	require.NotEqual(t, Prefectus.Hash(), Novitiate.Hash())
}

func TestDefaultPolicyParse(t *testing.T) {
	policy := Default()
	for _, r := range []Rank{Prefectus, Adeptus, Novitiate} {
		parsed, ok := policy.Parse(r.Hash())
		require.True(t, ok, r)
		require.Equal(t, r, parsed)
	}
	_, ok := policy.Parse(common.Hash{})
	require.False(t, ok)
	_, ok = policy.Parse(Rank("TRIBUNUS_RANK").Hash())
	require.False(t, ok)
	require.Equal(t, []Rank{Prefectus, Adeptus, Novitiate}, policy.Ranks())
}

func TestNewPolicyRejectsDuplicatesAndBlanks(t *testing.T) {
	_, err := NewPolicy(Prefectus, " PREFECTUS_RANK ")
	require.ErrorContains(t, err, "duplicate")
	_, err = NewPolicy(" ")
	require.ErrorContains(t, err, "empty")
}

func TestZeroPolicyAcceptsNothing(t *testing.T) {
	var policy Policy
	require.False(t, policy.Contains(Prefectus))
	_, ok := policy.Parse(Prefectus.Hash())
	require.False(t, ok)
}

func TestLookup(t *testing.T) {
	policy := Default()
	r, err := policy.Lookup("prefectus")
	require.NoError(t, err)
	require.Equal(t, Prefectus, r)

	r, err = policy.Lookup("Novitiate_Rank")
	require.NoError(t, err)
	require.Equal(t, Novitiate, r)

	r, err = policy.Lookup(" ADEPTUS ")
	require.NoError(t, err)
	require.Equal(t, Adeptus, r)

	_, err = policy.Lookup("tribunus")
	require.Error(t, err)
}
