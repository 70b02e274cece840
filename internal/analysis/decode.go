package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vbonduro/eatlytic/internal/domain"
)

// Wire types use pointers so a missing or null field can be told apart from a
// zero value.
type wireNutrient struct {
	Name   *string `json:"name"`
	Amount *string `json:"amount"`
	Unit   *string `json:"unit"`
}

type wireImpact struct {
	System      *string `json:"system"`
	Description *string `json:"description"`
}

type wireAnalysis struct {
	RecognizedFood     *string         `json:"recognizedFood"`
	Summary            *string         `json:"summary"`
	Calories           *float64        `json:"calories"`
	Macros             *[]wireNutrient `json:"macros"`
	Micros             *[]wireNutrient `json:"micros"`
	BodyImpacts        *[]wireImpact   `json:"bodyImpacts"`
	SmartConsumption   *string         `json:"smartConsumption"`
	ImportantAwareness *string         `json:"importantAwareness"`
}

// Decode parses the raw model output into a FoodAnalysis. Any syntax error,
// type mismatch or missing required field fails the whole result with a
// response_parse error.
func Decode(raw string) (domain.FoodAnalysis, error) {
	text := stripCodeFence(strings.TrimSpace(raw))
	if text == "" {
		return domain.FoodAnalysis{}, domain.Errorf(domain.KindResponseParse, "decode response", "empty response")
	}

	var w wireAnalysis
	if err := json.Unmarshal([]byte(text), &w); err != nil {
		return domain.FoodAnalysis{}, domain.NewError(domain.KindResponseParse, "decode response", err)
	}

	v := &validator{}
	out := domain.FoodAnalysis{
		RecognizedFood:     v.text("recognizedFood", w.RecognizedFood),
		Summary:            v.text("summary", w.Summary),
		Calories:           v.calories(w.Calories),
		Macros:             v.nutrients("macros", w.Macros, true),
		Micros:             v.nutrients("micros", w.Micros, false),
		BodyImpacts:        v.impacts(w.BodyImpacts),
		SmartConsumption:   v.text("smartConsumption", w.SmartConsumption),
		ImportantAwareness: v.text("importantAwareness", w.ImportantAwareness),
	}
	if err := v.err(); err != nil {
		return domain.FoodAnalysis{}, domain.NewError(domain.KindResponseParse, "validate response", err)
	}
	return out, nil
}

// stripCodeFence removes a surrounding markdown fence such as ```json ... ```.
// Some models add one even when asked for bare JSON.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	body := s[3 : len(s)-3]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		if tag := strings.TrimSpace(body[:nl]); !strings.ContainsAny(tag, "{[") {
			body = body[nl+1:]
		}
	}
	return strings.TrimSpace(body)
}

type validator struct {
	problems []string
}

func (v *validator) add(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) err() error {
	if len(v.problems) == 0 {
		return nil
	}
	return errors.New(strings.Join(v.problems, "; "))
}

// text requires a present, non-blank string.
func (v *validator) text(field string, p *string) string {
	if p == nil {
		v.add("missing %s", field)
		return ""
	}
	if strings.TrimSpace(*p) == "" {
		v.add("empty %s", field)
	}
	return *p
}

// present requires the field to exist but allows an empty value.
func (v *validator) present(field string, p *string) string {
	if p == nil {
		v.add("missing %s", field)
		return ""
	}
	return *p
}

func (v *validator) calories(p *float64) float64 {
	if p == nil {
		v.add("missing calories")
		return 0
	}
	if *p < 0 {
		v.add("calories must not be negative, got %v", *p)
	}
	return *p
}

func (v *validator) nutrients(field string, p *[]wireNutrient, required bool) []domain.Nutrient {
	if p == nil {
		if required {
			v.add("missing %s", field)
		}
		return []domain.Nutrient{}
	}
	out := make([]domain.Nutrient, 0, len(*p))
	for i, n := range *p {
		at := fmt.Sprintf("%s[%d]", field, i)
		out = append(out, domain.Nutrient{
			Name:   v.text(at+".name", n.Name),
			Amount: v.present(at+".amount", n.Amount),
			Unit:   v.present(at+".unit", n.Unit),
		})
	}
	return out
}

func (v *validator) impacts(p *[]wireImpact) []domain.BodyImpact {
	if p == nil {
		v.add("missing bodyImpacts")
		return []domain.BodyImpact{}
	}
	out := make([]domain.BodyImpact, 0, len(*p))
	for i, im := range *p {
		at := fmt.Sprintf("bodyImpacts[%d]", i)
		out = append(out, domain.BodyImpact{
			System:      v.text(at+".system", im.System),
			Description: v.text(at+".description", im.Description),
		})
	}
	return out
}
