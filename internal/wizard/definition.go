package wizard

import (
	"errors"
	"fmt"
)

// Kind names a wizard configuration.
type Kind string

const (
	KindPool       Kind = "pool"
	KindHostedPool Kind = "hosted-pool"
	KindGiveaway   Kind = "giveaway"
)

// Field names shared by the hosts, the forms and the draft decoders.
const (
	FieldSelectedImage       = "selectedImage"
	FieldName                = "name"
	FieldDescription         = "description"
	FieldRegistrationStart   = "registrationStart"
	FieldRegistrationEnd     = "registrationEnd"
	FieldRegistrationEnabled = "registrationEnabled"
	FieldBuyIn               = "buyIn"
	FieldSoftCap             = "softCap"
	FieldRulesLink           = "rulesLink"
	FieldPayoutAddress       = "payoutAddress"
	FieldTokenSymbol         = "tokenSymbol"
	FieldCapacity            = "capacity"
	FieldPrize               = "prize"
	FieldDrawAt              = "drawAt"
)

// StepSpec describes one step: its name and the fields it owns.
type StepSpec struct {
	Name   string
	Fields []string
}

// Definition is the fixed step layout of one wizard kind.
type Definition struct {
	Kind  Kind
	Steps []StepSpec
}

// TotalSteps returns the number of steps in the definition.
func (d Definition) TotalSteps() int {
	return len(d.Steps)
}

// Step returns the spec of the 1-based step n.
func (d Definition) Step(n int) (StepSpec, bool) {
	if n < 1 || n > len(d.Steps) {
		return StepSpec{}, false
	}
	return d.Steps[n-1], true
}

// Owns reports whether step n owns the named field.
func (d Definition) Owns(n int, field string) bool {
	spec, ok := d.Step(n)
	if !ok {
		return false
	}
	for _, f := range spec.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// Validate checks that the definition has steps and that no field is owned twice.
func (d Definition) Validate() error {
	if len(d.Steps) == 0 {
		return errors.New("wizard definition has no steps")
	}
	owner := make(map[string]int)
	for i, s := range d.Steps {
		for _, f := range s.Fields {
			if prev, ok := owner[f]; ok {
				return fmt.Errorf("field %q owned by steps %d and %d", f, prev, i+1)
			}
			owner[f] = i + 1
		}
	}
	return nil
}

var (
	poolSteps = []StepSpec{
		{Name: "template", Fields: []string{FieldSelectedImage}},
		{Name: "details", Fields: []string{FieldName, FieldDescription}},
		{Name: "registration", Fields: []string{FieldRegistrationStart, FieldRegistrationEnd, FieldRegistrationEnabled}},
		{Name: "terms", Fields: []string{FieldBuyIn, FieldSoftCap, FieldRulesLink}},
	}

	// PoolWizard is the 4-step pool creation flow.
	PoolWizard = Definition{Kind: KindPool, Steps: poolSteps}

	// HostedPoolWizard adds a payout step to the pool flow.
	HostedPoolWizard = Definition{
		Kind: KindHostedPool,
		Steps: append(append([]StepSpec{}, poolSteps...),
			StepSpec{Name: "payout", Fields: []string{FieldPayoutAddress, FieldTokenSymbol}},
		),
	}

	// GiveawayWizard is the 2-step giveaway flow.
	GiveawayWizard = Definition{
		Kind: KindGiveaway,
		Steps: []StepSpec{
			{Name: "details", Fields: []string{FieldName, FieldDescription, FieldSelectedImage}},
			{Name: "terms", Fields: []string{FieldCapacity, FieldPrize, FieldDrawAt}},
		},
	}
)

// Lookup returns the definition registered for kind.
func Lookup(kind Kind) (Definition, bool) {
	switch kind {
	case KindPool:
		return PoolWizard, true
	case KindHostedPool:
		return HostedPoolWizard, true
	case KindGiveaway:
		return GiveawayWizard, true
	}
	return Definition{}, false
}
