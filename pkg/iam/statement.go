// Package iam declares roles and permission documents, and hands out grants against them.
package iam

import (
	"fmt"
	"slices"
	"strings"

	"github.com/klothoplatform/constructs/pkg/token"
)

type Effect string

const (
	EffectAllow Effect = "Allow"
	EffectDeny  Effect = "Deny"
)

// PolicyStatement is a single statement of a [PolicyDocument].
type PolicyStatement struct {
	Sid       string
	Effect    Effect
	Actions   []string
	Resources []token.Str
	// Principal is only used in resource and trust policies, e.g. {"Service": ["lambda.amazonaws.com"]}.
	Principal map[string][]string
}

// NewStatement returns an Allow statement for actions on resources.
func NewStatement(actions []string, resources ...token.Str) *PolicyStatement {
	s := &PolicyStatement{Effect: EffectAllow}
	s.AddActions(actions...)
	s.AddResources(resources...)
	return s
}

// AddActions appends actions that are not already present.
func (s *PolicyStatement) AddActions(actions ...string) {
	for _, a := range actions {
		if !slices.Contains(s.Actions, a) {
			s.Actions = append(s.Actions, a)
		}
	}
}

// AddResources appends resources. Literal duplicates are skipped; tokens are deduplicated when rendered.
func (s *PolicyStatement) AddResources(resources ...token.Str) {
	for _, r := range resources {
		if lit, ok := r.Literal(); ok && slices.ContainsFunc(s.Resources, func(e token.Str) bool {
			el, ok := e.Literal()
			return ok && el == lit
		}) {
			continue
		}
		s.Resources = append(s.Resources, r)
	}
}

func (s *PolicyStatement) Validate() error {
	if len(s.Actions) == 0 {
		return fmt.Errorf("policy statement must contain at least one action")
	}
	if len(s.Resources) == 0 && len(s.Principal) == 0 {
		return fmt.Errorf("policy statement for %s must contain at least one resource", strings.Join(s.Actions, ","))
	}
	return nil
}

// mergeKey groups statements that only differ in their resources.
func (s *PolicyStatement) mergeKey() string {
	if s.Sid != "" || len(s.Principal) > 0 {
		return ""
	}
	actions := slices.Clone(s.Actions)
	slices.Sort(actions)
	return string(s.Effect) + "|" + strings.Join(actions, ",")
}

func (s *PolicyStatement) render() (map[string]any, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	out := map[string]any{
		"Effect": string(s.Effect),
		"Action": singleOrList(s.Actions),
	}
	if s.Sid != "" {
		out["Sid"] = s.Sid
	}
	if len(s.Principal) > 0 {
		p := make(map[string]any, len(s.Principal))
		for k, v := range s.Principal {
			p[k] = singleOrList(v)
		}
		out["Principal"] = p
	}
	if len(s.Resources) > 0 {
		resources := make([]any, 0, len(s.Resources))
		seen := make(map[string]struct{}, len(s.Resources))
		for _, r := range s.Resources {
			v, err := token.Resolve(r)
			if err != nil {
				return nil, err
			}
			if v == nil {
				continue
			}
			key := fmt.Sprint(v)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			resources = append(resources, v)
		}
		if len(resources) == 1 {
			out["Resource"] = resources[0]
		} else {
			out["Resource"] = resources
		}
	}
	return out, nil
}

func singleOrList(vs []string) any {
	if len(vs) == 1 {
		return vs[0]
	}
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
