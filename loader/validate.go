package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/mobcore/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

func (e *ValidationError) errorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// validate checks the compiled defs for referential integrity and
// consistency. Warnings are appended to defs.Warnings either way.
func validate(defs *types.Defs) error {
	ve := &ValidationError{}

	if defs.Title == "" {
		ve.errorf("Game.title is required")
	}

	typeNames := make([]string, 0, len(defs.MobTypes))
	for name := range defs.MobTypes {
		typeNames = append(typeNames, name)
	}
	sort.Strings(typeNames)

	for _, name := range typeNames {
		validateMobType(defs.MobTypes[name], defs, ve)
	}

	statusNames := make([]string, 0, len(defs.Statuses))
	for name := range defs.Statuses {
		statusNames = append(statusNames, name)
	}
	sort.Strings(statusNames)
	for _, name := range statusNames {
		st := defs.Statuses[name]
		if st.Replacement != "" {
			if _, ok := defs.Statuses[st.Replacement]; !ok {
				ve.errorf("status type %q replacement %q is not a defined status", name, st.Replacement)
			}
		}
		if st.Replacement != "" && st.AutoRemoveTime <= 0 {
			ve.warnf("status type %q has a replacement but never times out", name)
		}
	}

	stops := map[string]bool{}
	for _, s := range defs.PathStops {
		stops[s.Name] = true
	}
	for _, s := range defs.PathStops {
		for _, l := range s.Links {
			if !stops[l.To] {
				ve.errorf("path stop %q links to undefined stop %q", s.Name, l.To)
			}
		}
	}

	for i, p := range defs.Placements {
		if _, ok := defs.MobTypes[p.Type]; !ok {
			ve.errorf("placement %d uses undefined mob type %q", i, p.Type)
		}
	}

	defs.Warnings = append(defs.Warnings, ve.Warnings...)

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateMobType(mt *types.MobTypeDef, defs *types.Defs, ve *ValidationError) {
	if len(mt.States) == 0 {
		ve.errorf("mob type %q has no states", mt.Name)
	}

	for _, ref := range []struct{ field, status string }{
		{"sprays_status", mt.SpraysStatus},
		{"hazard_status", mt.HazardStatus},
	} {
		if ref.status == "" {
			continue
		}
		if _, ok := defs.Statuses[ref.status]; !ok {
			ve.errorf("mob type %q %s %q is not a defined status", mt.Name, ref.field, ref.status)
		}
	}

	vulnNames := make([]string, 0, len(mt.Vulnerabilities))
	for name := range mt.Vulnerabilities {
		vulnNames = append(vulnNames, name)
	}
	sort.Strings(vulnNames)
	for _, name := range vulnNames {
		if _, ok := defs.Statuses[name]; !ok {
			ve.warnf("mob type %q has a vulnerability to undefined status %q", mt.Name, name)
		}
		if to := mt.Vulnerabilities[name].StatusTo; to != "" {
			if _, ok := defs.Statuses[to]; !ok {
				ve.errorf("mob type %q vulnerability %q turns into undefined status %q", mt.Name, name, to)
			}
		}
	}

	spawnNames := map[string]bool{}
	for _, sp := range mt.Spawns {
		if sp.Name == "" {
			ve.errorf("mob type %q has a spawn without a name", mt.Name)
		} else if spawnNames[sp.Name] {
			ve.errorf("mob type %q declares spawn %q twice", mt.Name, sp.Name)
		}
		spawnNames[sp.Name] = true
		if _, ok := defs.MobTypes[sp.Type]; !ok {
			ve.errorf("mob type %q spawn %q uses undefined mob type %q", mt.Name, sp.Name, sp.Type)
		}
	}

	for _, nest := range mt.NestTypes {
		if _, ok := defs.MobTypes[nest]; !ok {
			ve.warnf("mob type %q nest type %q is not a defined mob type", mt.Name, nest)
		}
	}
}
