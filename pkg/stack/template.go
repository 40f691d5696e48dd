package stack

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/klothoplatform/constructs/pkg/construct"
	"github.com/klothoplatform/constructs/pkg/token"
)

const templateFormatVersion = "2010-09-09"

type (
	Template struct {
		AWSTemplateFormatVersion string                      `json:"AWSTemplateFormatVersion"`
		Description              string                      `json:"Description,omitempty"`
		Conditions               map[string]any              `json:"Conditions,omitempty"`
		Resources                map[string]TemplateResource `json:"Resources"`
		Outputs                  map[string]TemplateOutput   `json:"Outputs,omitempty"`
	}

	TemplateResource struct {
		Type                string         `json:"Type"`
		Properties          map[string]any `json:"Properties,omitempty"`
		DependsOn           []string       `json:"DependsOn,omitempty"`
		Condition           string         `json:"Condition,omitempty"`
		Metadata            map[string]any `json:"Metadata,omitempty"`
		DeletionPolicy      string         `json:"DeletionPolicy,omitempty"`
		UpdateReplacePolicy string         `json:"UpdateReplacePolicy,omitempty"`
	}

	TemplateOutput struct {
		Value       any               `json:"Value"`
		Description string            `json:"Description,omitempty"`
		Condition   string            `json:"Condition,omitempty"`
		Export      map[string]string `json:"Export,omitempty"`
	}
)

// Template resolves every token in the stack and renders the deployment template.
// References to resources or conditions that are not declared in this stack are errors.
func (s *Stack) Template() (*Template, error) {
	t := &Template{
		AWSTemplateFormatVersion: templateFormatVersion,
		Description:              s.description,
		Resources:                make(map[string]TemplateResource),
	}
	var errs error

	if len(s.conditions) > 0 {
		t.Conditions = make(map[string]any, len(s.conditions))
	}
	for _, c := range s.conditions {
		v, err := token.Resolve(c.Expression)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("condition %s: %w", c.logicalID, err))
			continue
		}
		t.Conditions[c.logicalID] = v
	}

	// Resources are rendered in creation order.
	err := construct.WalkGraph(s.graph, func(id string, r *construct.Resource, nerr error) error {
		if r == nil {
			return nerr
		}
		tr, err := s.renderResource(r)
		if err != nil {
			return errors.Join(nerr, fmt.Errorf("resource %s: %w", id, err))
		}
		t.Resources[id] = tr
		return nerr
	})
	errs = errors.Join(errs, err)

	if len(s.outputs) > 0 {
		t.Outputs = make(map[string]TemplateOutput, len(s.outputs))
	}
	for _, o := range s.outputs {
		v, err := token.Resolve(o.Value)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("output %s: %w", o.logicalID, err))
			continue
		}
		to := TemplateOutput{Value: v, Description: o.Description}
		if o.Condition != nil {
			to.Condition = o.Condition.logicalID
		}
		if o.ExportName != "" {
			to.Export = map[string]string{"Name": o.ExportName}
		}
		t.Outputs[o.logicalID] = to
	}
	if errs != nil {
		return nil, errs
	}

	if err := t.checkReferences(); err != nil {
		return nil, fmt.Errorf("stack %s: %w", s.name, err)
	}
	return t, nil
}

func (s *Stack) renderResource(r *construct.Resource) (TemplateResource, error) {
	tr := TemplateResource{
		Type:                r.Type,
		DeletionPolicy:      r.DeletionPolicy,
		UpdateReplacePolicy: r.UpdateReplacePolicy,
	}
	props, err := token.Resolve(map[string]any(r.Properties))
	if err != nil {
		return tr, err
	}
	if m, ok := props.(map[string]any); ok && len(m) > 0 {
		tr.Properties = m
	}
	if len(r.Metadata) > 0 {
		md, err := token.Resolve(r.Metadata)
		if err != nil {
			return tr, fmt.Errorf("metadata: %w", err)
		}
		tr.Metadata, _ = md.(map[string]any)
	}
	if r.Condition != nil {
		tr.Condition = r.Condition.LogicalID()
	}
	deps, err := construct.DirectDependencies(s.graph, r.LogicalID())
	if err != nil {
		return tr, err
	}
	slices.Sort(deps)
	tr.DependsOn = deps
	return tr, nil
}

// checkReferences verifies that every Ref, Fn::GetAtt, Fn::If and Condition in the template
// points at something declared in it.
func (t *Template) checkReferences() error {
	var errs error
	check := func(owner string, v any) {
		walkIntrinsics(v, func(fn string, target string) {
			switch fn {
			case "Ref":
				if strings.HasPrefix(target, "AWS::") {
					return
				}
				fallthrough
			case "Fn::GetAtt":
				if _, ok := t.Resources[target]; !ok {
					errs = errors.Join(errs, fmt.Errorf("%s references unknown resource %s", owner, target))
				}
			case "Fn::If", "Condition":
				if _, ok := t.Conditions[target]; !ok {
					errs = errors.Join(errs, fmt.Errorf("%s references unknown condition %s", owner, target))
				}
			}
		})
	}

	for _, id := range sortedKeys(t.Conditions) {
		check("condition "+id, t.Conditions[id])
	}
	for _, id := range sortedKeys(t.Resources) {
		r := t.Resources[id]
		owner := "resource " + id
		check(owner, r.Properties)
		check(owner, r.Metadata)
		if r.Condition != "" {
			check(owner, map[string]any{"Condition": r.Condition})
		}
		for _, dep := range r.DependsOn {
			check(owner, map[string]any{"Ref": dep})
		}
	}
	for _, id := range sortedKeys(t.Outputs) {
		o := t.Outputs[id]
		check("output "+id, o.Value)
		if o.Condition != "" {
			check("output "+id, map[string]any{"Condition": o.Condition})
		}
	}
	return errs
}

// walkIntrinsics calls fn for each intrinsic function in v that names a logical id.
func walkIntrinsics(v any, fn func(intrinsic, target string)) {
	switch v := v.(type) {
	case map[string]any:
		if len(v) == 1 {
			for k, arg := range v {
				switch k {
				case "Ref", "Condition":
					if target, ok := arg.(string); ok {
						fn(k, target)
						return
					}
				case "Fn::GetAtt", "Fn::If":
					if args, ok := arg.([]any); ok && len(args) > 0 {
						if target, ok := args[0].(string); ok {
							fn(k, target)
						}
						for _, a := range args[1:] {
							walkIntrinsics(a, fn)
						}
						return
					}
				}
			}
		}
		for _, k := range sortedKeys(v) {
			walkIntrinsics(v[k], fn)
		}
	case []any:
		for _, e := range v {
			walkIntrinsics(e, fn)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
