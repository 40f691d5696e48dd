// Package stack provides the deployable units of a construct tree: an [App] holding one or more
// [Stack]s, each of which renders into a single template.
package stack

import (
	"github.com/klothoplatform/constructs/pkg/construct"
)

// App is the root of a construct tree.
type App struct {
	node   *construct.Node
	stacks []*Stack
}

func NewApp() *App {
	a := &App{}
	a.node = construct.NewRoot(a)
	return a
}

func (a *App) Node() *construct.Node {
	return a.node
}

// Stacks returns the stacks of the app in declaration order.
func (a *App) Stacks() []*Stack {
	out := make([]*Stack, len(a.stacks))
	copy(out, a.stacks)
	return out
}
