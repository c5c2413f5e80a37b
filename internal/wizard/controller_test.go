package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewController_InitialState(t *testing.T) {
	c := NewController(PoolWizard)

	assert.Equal(t, 1, c.Step())
	assert.Equal(t, 4, c.TotalSteps())
	assert.Empty(t, c.State().Data)
	assert.False(t, c.Completed())
}

func TestDefinitions(t *testing.T) {
	tests := []struct {
		def   Definition
		total int
	}{
		{PoolWizard, 4},
		{HostedPoolWizard, 5},
		{GiveawayWizard, 2},
	}
	for _, tt := range tests {
		t.Run(string(tt.def.Kind), func(t *testing.T) {
			require.NoError(t, tt.def.Validate())
			assert.Equal(t, tt.total, tt.def.TotalSteps())

			got, ok := Lookup(tt.def.Kind)
			require.True(t, ok)
			assert.Equal(t, tt.def.Kind, got.Kind)
		})
	}

	_, ok := Lookup("raffle")
	assert.False(t, ok)
	// the hosted variant must not share the pool slice
	assert.Len(t, PoolWizard.Steps, 4)
}

func TestDefinition_ValidateRejectsSharedField(t *testing.T) {
	def := Definition{Kind: "bad", Steps: []StepSpec{
		{Name: "a", Fields: []string{"name"}},
		{Name: "b", Fields: []string{"name"}},
	}}
	assert.Error(t, def.Validate())
	assert.Error(t, Definition{Kind: "empty"}.Validate())
}

func TestAdvance_ForwardAccumulation(t *testing.T) {
	c := NewController(PoolWizard)

	fragments := []Fields{
		{FieldSelectedImage: "template-3"},
		{FieldName: "Friday Pool", FieldDescription: "Weekly pot"},
		{FieldRegistrationStart: "2024-11-25T16:45:00Z", FieldRegistrationEnd: "2024-11-25T17:45:00Z", FieldRegistrationEnabled: true},
	}

	seen := Fields{}
	for i, f := range fragments {
		res, err := c.Advance(Fragment{Step: i + 1, Fields: f})
		require.NoError(t, err)
		assert.Equal(t, Advanced, res.Outcome)
		assert.Equal(t, i+2, res.Step)
		assert.Equal(t, i+2, c.Step())

		for k, v := range f {
			seen[k] = v
		}
		for k, v := range seen {
			assert.Equal(t, v, c.State().Data[k], "field %s after step %d", k, i+1)
		}
	}
}

func TestAdvance_TerminalCompletion(t *testing.T) {
	c := NewController(GiveawayWizard)

	_, err := c.Advance(Fragment{Step: 1, Fields: Fields{FieldName: "Swag drop"}})
	require.NoError(t, err)

	res, err := c.Advance(Fragment{Step: 2, Fields: Fields{FieldCapacity: 50, FieldPrize: "hoodie"}})
	require.NoError(t, err)
	assert.Equal(t, Completed, res.Outcome)
	assert.Equal(t, 2, res.Step)
	assert.Equal(t, 2, c.Step())
	assert.True(t, c.Completed())
	assert.Equal(t, Fields{FieldName: "Swag drop", FieldCapacity: 50, FieldPrize: "hoodie"}, res.Data)

	_, err = c.Advance(Fragment{Step: 2, Fields: Fields{FieldPrize: "mug"}})
	assert.ErrorIs(t, err, ErrCompleted)
	_, err = c.Retreat()
	assert.ErrorIs(t, err, ErrCompleted)
}

func TestRetreat_FloorIsIdempotent(t *testing.T) {
	c := NewController(PoolWizard)

	res, err := c.Retreat()
	require.NoError(t, err)
	assert.Equal(t, Retreated, res.Outcome)
	assert.Equal(t, 1, res.Step)
	assert.Equal(t, 1, c.Step())
	assert.Empty(t, c.State().Data)
}

func TestRetreat_PreservesData(t *testing.T) {
	c := NewController(PoolWizard)
	_, err := c.Advance(Fragment{Step: 1, Fields: Fields{FieldSelectedImage: "template-1"}})
	require.NoError(t, err)
	_, err = c.Advance(Fragment{Step: 2, Fields: Fields{FieldName: "n", FieldDescription: "d"}})
	require.NoError(t, err)

	before := c.State().Data
	res, err := c.Retreat()
	require.NoError(t, err)
	assert.Equal(t, 2, res.Step)
	assert.Equal(t, before, c.State().Data)
	assert.Equal(t, Fields{FieldName: "n", FieldDescription: "d"}, c.InitialData(2))
}

func TestAdvance_RejectsWrongStep(t *testing.T) {
	c := NewController(PoolWizard)

	_, err := c.Advance(Fragment{Step: 2, Fields: Fields{FieldName: "x"}})
	assert.ErrorIs(t, err, ErrStepMismatch)
	assert.Equal(t, 1, c.Step())
	assert.Empty(t, c.State().Data)
}

func TestAdvance_RejectsForeignField(t *testing.T) {
	c := NewController(PoolWizard)

	_, err := c.Advance(Fragment{Step: 1, Fields: Fields{FieldSelectedImage: "template-1", FieldName: "sneaky"}})
	assert.ErrorIs(t, err, ErrFieldNotOwned)
	assert.Equal(t, 1, c.Step())
	assert.Empty(t, c.State().Data)
}

func TestAdvance_PureFunctionsDoNotAlias(t *testing.T) {
	s := NewState()
	next, _, err := Advance(PoolWizard, s, Fragment{Step: 1, Fields: Fields{FieldSelectedImage: "template-2"}})
	require.NoError(t, err)

	assert.Empty(t, s.Data, "input state must not be mutated")
	assert.Equal(t, 2, next.Step)

	back, res := Retreat(next)
	assert.Equal(t, 1, back.Step)
	res.Data[FieldSelectedImage] = "changed"
	assert.Equal(t, "template-2", back.Data[FieldSelectedImage])
}

// Walks the four-step pool scenario including a step back.
func TestPoolScenario(t *testing.T) {
	c := NewController(PoolWizard)

	res, err := c.Advance(Fragment{Step: 1, Fields: Fields{FieldSelectedImage: "template-3"}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Step)
	assert.Equal(t, Fields{FieldSelectedImage: "template-3"}, res.Data)

	res, err = c.Advance(Fragment{Step: 2, Fields: Fields{FieldName: "Friday Pool", FieldDescription: "Weekly pot"}})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Step)

	res, err = c.Retreat()
	require.NoError(t, err)
	assert.Equal(t, 2, res.Step)
	assert.Equal(t, "Friday Pool", res.Data[FieldName])
	assert.Equal(t, "Weekly pot", res.Data[FieldDescription])

	res, err = c.Advance(Fragment{Step: 2, Fields: Fields{
		FieldName: "Friday Pool", FieldDescription: "Weekly pot",
	}})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Step)

	res, err = c.Advance(Fragment{Step: 3, Fields: Fields{
		FieldRegistrationStart:   "2024-11-25T16:45:00Z",
		FieldRegistrationEnd:     "2024-11-25T17:45:00Z",
		FieldRegistrationEnabled: true,
	}})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Step)

	res, err = c.Advance(Fragment{Step: 4, Fields: Fields{
		FieldBuyIn: 10, FieldSoftCap: 100, FieldRulesLink: "https://x.test/rules",
	}})
	require.NoError(t, err)
	assert.Equal(t, Completed, res.Outcome)
	assert.Equal(t, 4, c.Step())
	assert.Equal(t, Fields{
		FieldSelectedImage:       "template-3",
		FieldName:                "Friday Pool",
		FieldDescription:         "Weekly pot",
		FieldRegistrationStart:   "2024-11-25T16:45:00Z",
		FieldRegistrationEnd:     "2024-11-25T17:45:00Z",
		FieldRegistrationEnabled: true,
		FieldBuyIn:               10,
		FieldSoftCap:             100,
		FieldRulesLink:           "https://x.test/rules",
	}, res.Data)
}
