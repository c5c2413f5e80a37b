// Package forms holds the step forms of each wizard kind: chat prompts,
// free-text parsing and normalization of submitted fields.
package forms

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/natindo/poolmini/internal/wizard"
)

// Templates are the selectable cover images.
var Templates = []string{"template-1", "template-2", "template-3", "template-4", "template-5", "template-6"}

const (
	maxNameLen        = 80
	maxDescriptionLen = 500
	defaultToken      = "USDC"
	maxBuyIn          = 1e12
	dateTimeLayout    = "2006-01-02 15:04"
	skipWord          = "skip"
)

var (
	addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	tokenRe   = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)
)

// FieldError is a user-facing validation failure on one field.
type FieldError struct {
	Field string
	Msg   string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Msg
}

func fieldErr(field, format string, args ...any) error {
	return &FieldError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Form collects and checks the fragment of one step.
type Form interface {
	// Prompt is the chat text asking for the step's input.
	Prompt() string
	// Parse turns a chat message into the step's fields.
	Parse(text string, loc *time.Location) (wizard.Fields, error)
	// Normalize checks submitted fields and converts them to canonical types.
	Normalize(fields wizard.Fields) (wizard.Fields, error)
}

type stepForm struct {
	prompt    string
	parse     func(text string, loc *time.Location) (wizard.Fields, error)
	normalize func(fields wizard.Fields) (wizard.Fields, error)
}

func (f stepForm) Prompt() string { return f.prompt }

func (f stepForm) Parse(text string, loc *time.Location) (wizard.Fields, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw, err := f.parse(strings.TrimSpace(text), loc)
	if err != nil {
		return nil, err
	}
	return f.normalize(raw)
}

func (f stepForm) Normalize(fields wizard.Fields) (wizard.Fields, error) {
	return f.normalize(fields)
}

var (
	templateForm = stepForm{
		prompt: "Pick a cover template (1-6):",
		parse: func(text string, _ *time.Location) (wizard.Fields, error) {
			if n, err := strconv.Atoi(text); err == nil {
				text = fmt.Sprintf("template-%d", n)
			}
			return wizard.Fields{wizard.FieldSelectedImage: text}, nil
		},
		normalize: func(in wizard.Fields) (wizard.Fields, error) {
			img, err := templateField(in, true)
			if err != nil {
				return nil, err
			}
			return wizard.Fields{wizard.FieldSelectedImage: img}, nil
		},
	}

	poolDetailsForm = stepForm{
		prompt: "Send the pool name and a description as: name | description",
		parse: func(text string, _ *time.Location) (wizard.Fields, error) {
			name, desc, _ := strings.Cut(text, "|")
			return wizard.Fields{
				wizard.FieldName:        strings.TrimSpace(name),
				wizard.FieldDescription: strings.TrimSpace(desc),
			}, nil
		},
		normalize: normalizeDetails,
	}

	registrationForm = stepForm{
		prompt: "Send the registration window as: start | end (YYYY-MM-DD HH:MM), or \"skip\" to disable registration.",
		parse: func(text string, loc *time.Location) (wizard.Fields, error) {
			if strings.EqualFold(text, skipWord) {
				return wizard.Fields{wizard.FieldRegistrationEnabled: false}, nil
			}
			startStr, endStr, ok := strings.Cut(text, "|")
			if !ok {
				return nil, fieldErr(wizard.FieldRegistrationEnd, "expected start | end")
			}
			start, err := parseTime(strings.TrimSpace(startStr), loc)
			if err != nil {
				return nil, fieldErr(wizard.FieldRegistrationStart, "unrecognized time %q", strings.TrimSpace(startStr))
			}
			end, err := parseTime(strings.TrimSpace(endStr), loc)
			if err != nil {
				return nil, fieldErr(wizard.FieldRegistrationEnd, "unrecognized time %q", strings.TrimSpace(endStr))
			}
			return wizard.Fields{
				wizard.FieldRegistrationStart:   start,
				wizard.FieldRegistrationEnd:     end,
				wizard.FieldRegistrationEnabled: true,
			}, nil
		},
		normalize: normalizeRegistration,
	}

	termsForm = stepForm{
		prompt: "Send the terms as: buy-in soft-cap [rules link], e.g. 10 100 https://example.com/rules",
		parse: func(text string, _ *time.Location) (wizard.Fields, error) {
			parts := strings.Fields(text)
			if len(parts) < 2 {
				return nil, fieldErr(wizard.FieldSoftCap, "expected buy-in and soft cap")
			}
			out := wizard.Fields{
				wizard.FieldBuyIn:   parts[0],
				wizard.FieldSoftCap: parts[1],
			}
			if len(parts) > 2 {
				out[wizard.FieldRulesLink] = parts[2]
			}
			return out, nil
		},
		normalize: normalizeTerms,
	}

	payoutForm = stepForm{
		prompt: "Send the payout wallet and token as: 0xADDRESS [TOKEN]",
		parse: func(text string, _ *time.Location) (wizard.Fields, error) {
			parts := strings.Fields(text)
			if len(parts) == 0 {
				return nil, fieldErr(wizard.FieldPayoutAddress, "required")
			}
			out := wizard.Fields{wizard.FieldPayoutAddress: parts[0]}
			if len(parts) > 1 {
				out[wizard.FieldTokenSymbol] = parts[1]
			}
			return out, nil
		},
		normalize: normalizePayout,
	}

	giveawayDetailsForm = stepForm{
		prompt: "Send the giveaway as: name | description | template number (optional)",
		parse: func(text string, _ *time.Location) (wizard.Fields, error) {
			parts := strings.SplitN(text, "|", 3)
			out := wizard.Fields{wizard.FieldName: strings.TrimSpace(parts[0])}
			if len(parts) > 1 {
				out[wizard.FieldDescription] = strings.TrimSpace(parts[1])
			}
			if len(parts) > 2 {
				img := strings.TrimSpace(parts[2])
				if n, err := strconv.Atoi(img); err == nil {
					img = fmt.Sprintf("template-%d", n)
				}
				out[wizard.FieldSelectedImage] = img
			}
			return out, nil
		},
		normalize: func(in wizard.Fields) (wizard.Fields, error) {
			out, err := normalizeDetails(in)
			if err != nil {
				return nil, err
			}
			img, err := templateField(in, false)
			if err != nil {
				return nil, err
			}
			if img == "" {
				img = Templates[0]
			}
			out[wizard.FieldSelectedImage] = img
			return out, nil
		},
	}

	giveawayTermsForm = stepForm{
		prompt: "Send the terms as: capacity | prize | draw time (YYYY-MM-DD HH:MM, optional)",
		parse: func(text string, loc *time.Location) (wizard.Fields, error) {
			parts := strings.SplitN(text, "|", 3)
			out := wizard.Fields{wizard.FieldCapacity: strings.TrimSpace(parts[0])}
			if len(parts) > 1 {
				out[wizard.FieldPrize] = strings.TrimSpace(parts[1])
			}
			if len(parts) > 2 && strings.TrimSpace(parts[2]) != "" {
				at, err := parseTime(strings.TrimSpace(parts[2]), loc)
				if err != nil {
					return nil, fieldErr(wizard.FieldDrawAt, "unrecognized time %q", strings.TrimSpace(parts[2]))
				}
				out[wizard.FieldDrawAt] = at
			}
			return out, nil
		},
		normalize: normalizeGiveawayTerms,
	}
)

var registry = map[wizard.Kind][]Form{
	wizard.KindPool:       {templateForm, poolDetailsForm, registrationForm, termsForm},
	wizard.KindHostedPool: {templateForm, poolDetailsForm, registrationForm, termsForm, payoutForm},
	wizard.KindGiveaway:   {giveawayDetailsForm, giveawayTermsForm},
}

// For returns the form of the 1-based step of kind.
func For(kind wizard.Kind, step int) (Form, bool) {
	fs, ok := registry[kind]
	if !ok || step < 1 || step > len(fs) {
		return nil, false
	}
	return fs[step-1], true
}

func normalizeDetails(in wizard.Fields) (wizard.Fields, error) {
	name, err := stringField(in, wizard.FieldName)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fieldErr(wizard.FieldName, "required")
	}
	if len([]rune(name)) > maxNameLen {
		return nil, fieldErr(wizard.FieldName, "at most %d characters", maxNameLen)
	}
	desc, err := stringField(in, wizard.FieldDescription)
	if err != nil {
		return nil, err
	}
	if len([]rune(desc)) > maxDescriptionLen {
		return nil, fieldErr(wizard.FieldDescription, "at most %d characters", maxDescriptionLen)
	}
	return wizard.Fields{wizard.FieldName: name, wizard.FieldDescription: desc}, nil
}

func normalizeRegistration(in wizard.Fields) (wizard.Fields, error) {
	enabled := true
	if v, ok := in[wizard.FieldRegistrationEnabled]; ok {
		b, err := toBool(v)
		if err != nil {
			return nil, fieldErr(wizard.FieldRegistrationEnabled, "expected true or false")
		}
		enabled = b
	}
	out := wizard.Fields{wizard.FieldRegistrationEnabled: enabled}
	if !enabled {
		// clears a window left over from before a step back
		out[wizard.FieldRegistrationStart] = nil
		out[wizard.FieldRegistrationEnd] = nil
	}

	start, hasStart, err := timeField(in, wizard.FieldRegistrationStart)
	if err != nil {
		return nil, err
	}
	end, hasEnd, err := timeField(in, wizard.FieldRegistrationEnd)
	if err != nil {
		return nil, err
	}
	if enabled && (!hasStart || !hasEnd) {
		return nil, fieldErr(wizard.FieldRegistrationStart, "start and end required when registration is enabled")
	}
	if hasStart && hasEnd && !end.After(start) {
		return nil, fieldErr(wizard.FieldRegistrationEnd, "must be after start")
	}
	if hasStart {
		out[wizard.FieldRegistrationStart] = start
	}
	if hasEnd {
		out[wizard.FieldRegistrationEnd] = end
	}
	return out, nil
}

func normalizeTerms(in wizard.Fields) (wizard.Fields, error) {
	buyIn, err := toFloat(in[wizard.FieldBuyIn])
	if err != nil || buyIn < 0 || buyIn > maxBuyIn {
		return nil, fieldErr(wizard.FieldBuyIn, "must be a number between 0 and %g", float64(maxBuyIn))
	}
	softCap, err := toInt(in[wizard.FieldSoftCap])
	if err != nil || softCap <= 0 {
		return nil, fieldErr(wizard.FieldSoftCap, "must be a whole number > 0")
	}
	out := wizard.Fields{wizard.FieldBuyIn: buyIn, wizard.FieldSoftCap: softCap}

	link, err := stringField(in, wizard.FieldRulesLink)
	if err != nil {
		return nil, err
	}
	if link != "" {
		u, err := url.Parse(link)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fieldErr(wizard.FieldRulesLink, "must be an http(s) URL")
		}
	}
	out[wizard.FieldRulesLink] = link
	return out, nil
}

func normalizePayout(in wizard.Fields) (wizard.Fields, error) {
	addr, err := stringField(in, wizard.FieldPayoutAddress)
	if err != nil {
		return nil, err
	}
	if !addressRe.MatchString(addr) {
		return nil, fieldErr(wizard.FieldPayoutAddress, "must be a 0x-prefixed 20-byte hex address")
	}
	token, err := stringField(in, wizard.FieldTokenSymbol)
	if err != nil {
		return nil, err
	}
	token = strings.ToUpper(token)
	if token == "" {
		token = defaultToken
	}
	if !tokenRe.MatchString(token) {
		return nil, fieldErr(wizard.FieldTokenSymbol, "must be 2-10 letters or digits")
	}
	return wizard.Fields{wizard.FieldPayoutAddress: addr, wizard.FieldTokenSymbol: token}, nil
}

func normalizeGiveawayTerms(in wizard.Fields) (wizard.Fields, error) {
	capacity, err := toInt(in[wizard.FieldCapacity])
	if err != nil || capacity <= 0 {
		return nil, fieldErr(wizard.FieldCapacity, "must be a whole number > 0")
	}
	prize, err := stringField(in, wizard.FieldPrize)
	if err != nil {
		return nil, err
	}
	if prize == "" {
		return nil, fieldErr(wizard.FieldPrize, "required")
	}
	out := wizard.Fields{wizard.FieldCapacity: capacity, wizard.FieldPrize: prize}

	at, ok, err := timeField(in, wizard.FieldDrawAt)
	if err != nil {
		return nil, err
	}
	if ok {
		out[wizard.FieldDrawAt] = at
	}
	return out, nil
}

func templateField(in wizard.Fields, required bool) (string, error) {
	img, err := stringField(in, wizard.FieldSelectedImage)
	if err != nil {
		return "", err
	}
	if img == "" && !required {
		return "", nil
	}
	for _, t := range Templates {
		if t == img {
			return img, nil
		}
	}
	return "", fieldErr(wizard.FieldSelectedImage, "unknown template %q", img)
}

func stringField(in wizard.Fields, key string) (string, error) {
	v, ok := in[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fieldErr(key, "expected text")
	}
	return strings.TrimSpace(s), nil
}

func timeField(in wizard.Fields, key string) (time.Time, bool, error) {
	v, ok := in[key]
	if !ok || v == nil {
		return time.Time{}, false, nil
	}
	switch t := v.(type) {
	case time.Time:
		return t, true, nil
	case *time.Time:
		if t == nil {
			return time.Time{}, false, nil
		}
		return *t, true, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return time.Time{}, false, nil
		}
		parsed, err := parseTime(strings.TrimSpace(t), time.UTC)
		if err != nil {
			return time.Time{}, false, fieldErr(key, "unrecognized time %q", t)
		}
		return parsed, true, nil
	}
	return time.Time{}, false, fieldErr(key, "expected a time")
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(dateTimeLayout, s, loc)
}

// toFloat accepts finite numbers only.
func toFloat(v any) (float64, error) {
	f, err := rawFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %v", v)
	}
	return f, nil
}

func rawFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	}
	return 0, fmt.Errorf("not a number: %v", v)
}

func toInt(v any) (int, error) {
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("not a whole number: %v", v)
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("out of range: %v", v)
	}
	return int(f), nil
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(b))
	}
	return false, fmt.Errorf("not a bool: %v", v)
}
