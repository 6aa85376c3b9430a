package system

import (
	"fmt"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/milk9111/rigidcore/collision"
	"github.com/milk9111/rigidcore/common"
	"github.com/milk9111/rigidcore/ecs"
)

// ScriptListener runs a tengo script once for every collision event it
// reads. The script sees the globals `event` (kind, a, b), `state` (a map
// kept between runs) and the functions log(msg), is_alive(id) and
// kind_of(id). Script errors are logged and never stop the step.
type ScriptListener struct {
	name      string
	reader    *ecs.EventReader[collision.Event]
	compiled  *tengo.Compiled
	stateData *tengo.Map
	world     *ecs.World
	log       common.Logger
	runs      int
	failures  int
}

func NewScriptListener(w *ecs.World, name string, src []byte, log common.Logger) (*ScriptListener, error) {
	if log == nil {
		log = common.NopLogger
	}
	sl := &ScriptListener{
		name:      name,
		reader:    ecs.RegisterEvents[collision.Event](w).NewReader(),
		stateData: &tengo.Map{Value: map[string]tengo.Object{}},
		world:     w,
		log:       log,
	}
	if err := sl.Reload(src); err != nil {
		return nil, err
	}
	return sl, nil
}

// Reload compiles new source. State survives; on error the previous script
// stays in place.
func (sl *ScriptListener) Reload(src []byte) error {
	script := tengo.NewScript(src)
	if err := script.Add("event", &tengo.ImmutableMap{Value: map[string]tengo.Object{}}); err != nil {
		return fmt.Errorf("collision script %s: %w", sl.name, err)
	}
	if err := script.Add("state", sl.stateData); err != nil {
		return fmt.Errorf("collision script %s: %w", sl.name, err)
	}
	for name, fn := range sl.functions() {
		if err := script.Add(name, fn); err != nil {
			return fmt.Errorf("collision script %s: %w", sl.name, err)
		}
	}
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return fmt.Errorf("collision script %s: compile: %w", sl.name, err)
	}
	sl.compiled = compiled
	return nil
}

func (sl *ScriptListener) Update(w *ecs.World) {
	if sl == nil || sl.compiled == nil || w == nil {
		return
	}
	sl.world = w
	for _, ev := range sl.reader.Read() {
		if err := sl.run(ev); err != nil {
			sl.failures++
			sl.log.Error("ScriptListener: run", "script", sl.name, "event", ev.String(), "err", err)
		}
	}
	if n := sl.reader.Missed(); n > 0 {
		sl.log.Debug("ScriptListener: events dropped before read", "script", sl.name, "missed", n)
	}
}

func (sl *ScriptListener) run(ev collision.Event) error {
	event := &tengo.ImmutableMap{Value: map[string]tengo.Object{
		"kind": &tengo.String{Value: ev.Kind.String()},
		"a":    &tengo.Int{Value: int64(ev.A)},
		"b":    &tengo.Int{Value: int64(ev.B)},
	}}
	if err := sl.compiled.Set("event", event); err != nil {
		return err
	}
	if err := sl.compiled.Set("state", sl.stateData); err != nil {
		return err
	}
	sl.runs++
	return sl.compiled.Run()
}

// State returns a copy of the script's persistent state as Go values.
func (sl *ScriptListener) State() map[string]any {
	if sl == nil || sl.stateData == nil {
		return nil
	}
	out, _ := objectToAny(sl.stateData).(map[string]any)
	return out
}

// Runs returns how many events were handed to the script, and how many of
// those runs failed.
func (sl *ScriptListener) Runs() (runs, failures int) {
	if sl == nil {
		return 0, 0
	}
	return sl.runs, sl.failures
}

func (sl *ScriptListener) functions() map[string]*tengo.UserFunction {
	return map[string]*tengo.UserFunction{
		"log": {Name: "log", Value: func(args ...tengo.Object) (tengo.Object, error) {
			parts := make([]string, 0, len(args))
			for _, a := range args {
				parts = append(parts, objectAsString(a))
			}
			sl.log.Info("script: "+strings.Join(parts, " "), "script", sl.name)
			return tengo.UndefinedValue, nil
		}},
		"is_alive": {Name: "is_alive", Value: func(args ...tengo.Object) (tengo.Object, error) {
			e, ok := objectAsEntity(args)
			if !ok || !sl.world.IsAlive(e) {
				return tengo.FalseValue, nil
			}
			return tengo.TrueValue, nil
		}},
		"kind_of": {Name: "kind_of", Value: func(args ...tengo.Object) (tengo.Object, error) {
			e, ok := objectAsEntity(args)
			if !ok || !sl.world.IsAlive(e) {
				return tengo.UndefinedValue, nil
			}
			return &tengo.String{Value: kindOf(sl.world, e).String()}, nil
		}},
	}
}

func objectAsEntity(args []tengo.Object) (ecs.Entity, bool) {
	if len(args) < 1 {
		return 0, false
	}
	v, ok := args[0].(*tengo.Int)
	if !ok || v.Value <= 0 {
		return 0, false
	}
	return ecs.Entity(v.Value), true
}

func objectAsString(obj tengo.Object) string {
	if obj == nil {
		return ""
	}
	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	default:
		return strings.Trim(v.String(), "\"")
	}
}

func objectToAny(obj tengo.Object) any {
	if obj == nil {
		return nil
	}

	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	case *tengo.Int:
		return int(v.Value)
	case *tengo.Float:
		return v.Value
	case *tengo.Bool:
		return !v.IsFalsy()
	case *tengo.Array:
		out := make([]any, 0, len(v.Value))
		for _, item := range v.Value {
			out = append(out, objectToAny(item))
		}
		return out
	case *tengo.Map:
		out := make(map[string]any, len(v.Value))
		for k, item := range v.Value {
			out[k] = objectToAny(item)
		}
		return out
	case *tengo.ImmutableMap:
		out := make(map[string]any, len(v.Value))
		for k, item := range v.Value {
			out[k] = objectToAny(item)
		}
		return out
	case *tengo.Undefined:
		return nil
	default:
		return v.String()
	}
}
