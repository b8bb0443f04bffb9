package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/cwbudde/algo-graindelay/dsp/effects"
)

// loadPreset returns the default parameters with the fields present in the
// JSON file at path applied on top. An empty path yields the defaults.
func loadPreset(path string) (effects.GrainDelayParams, error) {
	params := effects.DefaultGrainDelayParams()
	if path == "" {
		return params, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return params, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&params); err != nil {
		return params, fmt.Errorf("decode %s: %w", path, err)
	}

	return params, nil
}

// overrides holds the per-parameter flags. Only flags given on the command
// line replace preset values.
type overrides struct {
	values map[string]*float64
	fields map[string]func(*effects.GrainDelayParams) *float64
}

func (o *overrides) register(fs *flag.FlagSet) {
	def := effects.DefaultGrainDelayParams()
	specs := []struct {
		name  string
		usage string
		field func(*effects.GrainDelayParams) *float64
	}{
		{"rate", "grain rate in Hz", func(p *effects.GrainDelayParams) *float64 { return &p.GrainRate }},
		{"attack", "grain attack in ms", func(p *effects.GrainDelayParams) *float64 { return &p.GrainAttack }},
		{"decay", "grain decay in ms", func(p *effects.GrainDelayParams) *float64 { return &p.GrainDecay }},
		{"sustain", "grain sustain level", func(p *effects.GrainDelayParams) *float64 { return &p.GrainSustain }},
		{"release", "grain release in ms", func(p *effects.GrainDelayParams) *float64 { return &p.GrainRelease }},
		{"delay", "delay time in seconds", func(p *effects.GrainDelayParams) *float64 { return &p.DelayTime }},
		{"delay-var", "grain onset variance in seconds", func(p *effects.GrainDelayParams) *float64 { return &p.DelayTimeVar }},
		{"feedback", "feedback gain", func(p *effects.GrainDelayParams) *float64 { return &p.Feedback }},
		{"dry", "dry mix", func(p *effects.GrainDelayParams) *float64 { return &p.DryMix }},
		{"wet", "wet mix", func(p *effects.GrainDelayParams) *float64 { return &p.WetMix }},
	}

	o.values = make(map[string]*float64, len(specs))
	o.fields = make(map[string]func(*effects.GrainDelayParams) *float64, len(specs))
	for _, s := range specs {
		o.values[s.name] = fs.Float64(s.name, *s.field(&def), s.usage)
		o.fields[s.name] = s.field
	}
}

// apply copies every override flag that was set on fs into p.
func (o *overrides) apply(fs *flag.FlagSet, p effects.GrainDelayParams) effects.GrainDelayParams {
	fs.Visit(func(f *flag.Flag) {
		field, ok := o.fields[f.Name]
		if !ok {
			return
		}
		*field(&p) = *o.values[f.Name]
		logger.Debug("parameter override", "flag", f.Name, "value", *o.values[f.Name])
	})
	return p
}
