package plugins

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/switchboard/internal/component"
)

const (
	goDescriptorFuncName = "Descriptor"
	goActivateFuncName   = "Activate"
	goCommandsFuncName   = "Commands"
)

// GoComponent is a component interpreted from a Go source file. Impl is
// nil when the source only declares a descriptor.
type GoComponent struct {
	Definition ComponentDefinition
	Path       string
	Impl       any
}

// LoadGoDir interprets every .go file in dir. Each file declares one
// component through Descriptor() and optionally Activate() and Commands().
func LoadGoDir(dir string) ([]GoComponent, error) {
	paths, err := pluginFiles(dir, isGoSource)
	if err != nil {
		return nil, err
	}
	out := make([]GoComponent, 0, len(paths))
	for _, path := range paths {
		loaded, err := LoadGoFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, loaded)
	}
	return out, nil
}

// LoadGoFile interprets one Go component source.
func LoadGoFile(path string) (GoComponent, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return GoComponent{}, fmt.Errorf("plugin: read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(code))) == 0 {
		return GoComponent{}, fmt.Errorf("plugin: %s is empty", path)
	}
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return GoComponent{}, fmt.Errorf("plugin: load stdlib symbols: %w", err)
	}
	if _, err := i.EvalPath(path); err != nil {
		return GoComponent{}, fmt.Errorf("plugin: interpret %s: %w", path, err)
	}
	descFn, err := i.Eval(goDescriptorFuncName)
	if err != nil {
		return GoComponent{}, fmt.Errorf("plugin: %s must define %s() map[string]any: %w", path, goDescriptorFuncName, err)
	}
	raw, err := invokeDescriptorFunc(descFn)
	if err != nil {
		return GoComponent{}, fmt.Errorf("plugin: %s: %w", path, err)
	}
	payload, err := yaml.Marshal(raw)
	if err != nil {
		return GoComponent{}, fmt.Errorf("plugin: %s: encode descriptor: %w", path, err)
	}
	def, err := ParseDefinitionYAML(payload)
	if err != nil {
		return GoComponent{}, fmt.Errorf("plugin: %s: %w", path, err)
	}

	var activate func() (bool, error)
	if value, err := i.Eval(goActivateFuncName); err == nil {
		if activate, err = asActivateFunc(value); err != nil {
			return GoComponent{}, fmt.Errorf("plugin: %s: %w", path, err)
		}
	}
	var commands func() map[string]component.CommandHandler
	if value, err := i.Eval(goCommandsFuncName); err == nil {
		if commands, err = asCommandsFunc(value); err != nil {
			return GoComponent{}, fmt.Errorf("plugin: %s: %w", path, err)
		}
	}
	return GoComponent{Definition: def, Path: filepath.Clean(path), Impl: newGoImpl(activate, commands)}, nil
}

func invokeDescriptorFunc(value reflect.Value) (map[string]any, error) {
	if !value.IsValid() || value.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", goDescriptorFuncName)
	}
	if value.Type().NumIn() != 0 {
		return nil, fmt.Errorf("%s must take no arguments", goDescriptorFuncName)
	}
	results := value.Call(nil)
	if len(results) == 0 || len(results) > 2 {
		return nil, fmt.Errorf("%s must return (map[string]any[, error])", goDescriptorFuncName)
	}
	if len(results) == 2 && !results[1].IsNil() {
		if e, ok := results[1].Interface().(error); ok && e != nil {
			return nil, e
		}
		return nil, fmt.Errorf("%s returned non-error second value", goDescriptorFuncName)
	}
	if m, ok := results[0].Interface().(map[string]any); ok {
		return m, nil
	}
	if results[0].Kind() != reflect.Map || results[0].Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("%s must return map[string]any", goDescriptorFuncName)
	}
	out := make(map[string]any, results[0].Len())
	iter := results[0].MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, nil
}

func asActivateFunc(value reflect.Value) (func() (bool, error), error) {
	if !value.IsValid() || value.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", goActivateFuncName)
	}
	switch fn := value.Interface().(type) {
	case func() (bool, error):
		return fn, nil
	case func() bool:
		return func() (bool, error) { return fn(), nil }, nil
	}
	t := value.Type()
	if t.NumIn() != 0 || t.NumOut() < 1 || t.NumOut() > 2 || t.Out(0).Kind() != reflect.Bool {
		return nil, fmt.Errorf("%s must have signature func() (bool, error) or func() bool", goActivateFuncName)
	}
	return func() (bool, error) {
		results := value.Call(nil)
		ok := results[0].Bool()
		if len(results) == 2 && !results[1].IsNil() {
			if e, isErr := results[1].Interface().(error); isErr {
				return false, e
			}
			return false, fmt.Errorf("%s returned non-error second value", goActivateFuncName)
		}
		return ok, nil
	}, nil
}

func asCommandsFunc(value reflect.Value) (func() map[string]component.CommandHandler, error) {
	if !value.IsValid() || value.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", goCommandsFuncName)
	}
	t := value.Type()
	if t.NumIn() != 0 || t.NumOut() != 1 || t.Out(0).Kind() != reflect.Map || t.Out(0).Key().Kind() != reflect.String || !isHandlerType(t.Out(0).Elem()) {
		return nil, fmt.Errorf("%s must have signature func() map[string]func([]string) (string, error)", goCommandsFuncName)
	}
	return func() map[string]component.CommandHandler {
		result := value.Call(nil)[0]
		out := make(map[string]component.CommandHandler, result.Len())
		iter := result.MapRange()
		for iter.Next() {
			if handler := asHandler(iter.Value()); handler != nil {
				out[iter.Key().String()] = handler
			}
		}
		return out
	}, nil
}

func asHandler(value reflect.Value) component.CommandHandler {
	if !value.IsValid() || value.IsNil() {
		return nil
	}
	if fn, ok := value.Interface().(func([]string) (string, error)); ok {
		return fn
	}
	if !isHandlerType(value.Type()) {
		return nil
	}
	return func(args []string) (string, error) {
		results := value.Call([]reflect.Value{reflect.ValueOf(args)})
		if !results[1].IsNil() {
			if e, ok := results[1].Interface().(error); ok {
				return "", e
			}
		}
		return results[0].String(), nil
	}
}

var (
	argsType  = reflect.TypeOf([]string(nil))
	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

// isHandlerType reports whether t is shaped like
// func([]string) (string, error).
func isHandlerType(t reflect.Type) bool {
	return t.Kind() == reflect.Func &&
		t.NumIn() == 1 && t.In(0) == argsType &&
		t.NumOut() == 2 && t.Out(0).Kind() == reflect.String && t.Out(1).Implements(errorType)
}

type goActivator struct {
	activate func() (bool, error)
}

func (g goActivator) Activate() (bool, error) { return g.activate() }

type goCommandSet struct {
	commands func() map[string]component.CommandHandler
}

func (g goCommandSet) Commands() map[string]component.CommandHandler { return g.commands() }

type goActivatingCommandSet struct {
	goActivator
	goCommandSet
}

// newGoImpl exposes exactly the capabilities the source defined.
func newGoImpl(activate func() (bool, error), commands func() map[string]component.CommandHandler) any {
	switch {
	case activate != nil && commands != nil:
		return goActivatingCommandSet{goActivator{activate}, goCommandSet{commands}}
	case activate != nil:
		return goActivator{activate}
	case commands != nil:
		return goCommandSet{commands}
	default:
		return nil
	}
}
