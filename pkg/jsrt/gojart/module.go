package gojart

import (
	"os"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
	"go.uber.org/zap"
)

// ModuleSource is a CommonJS bundle to expose under a module specifier,
// e.g. a build of firebase/auth.
type ModuleSource interface {
	// Specifier is the name passed to require(), e.g. "firebase/auth".
	Specifier() string

	// Origin identifies the source in stack traces.
	Origin() string

	// Bytes returns the JavaScript source.
	Bytes() ([]byte, error)
}

// FileModuleSource loads a bundle from a file.
type FileModuleSource struct {
	Module string
	Path   string
}

func (f *FileModuleSource) Specifier() string      { return f.Module }
func (f *FileModuleSource) Origin() string         { return f.Path }
func (f *FileModuleSource) Bytes() ([]byte, error) { return os.ReadFile(f.Path) }

// MemoryModuleSource loads a bundle from memory.
type MemoryModuleSource struct {
	Module string
	Data   []byte
}

func (m *MemoryModuleSource) Specifier() string      { return m.Module }
func (m *MemoryModuleSource) Origin() string         { return m.Module + ".js" }
func (m *MemoryModuleSource) Bytes() ([]byte, error) { return m.Data, nil }

// Module is a compiled SDK bundle.
type Module struct {
	Specifier  string
	Origin     string
	SizeBytes  int64
	CompiledAt time.Time

	program *goja.Program
}

const (
	moduleHeader = "(function (exports, require, module) {\n"
	moduleFooter = "\n})"
)

// LoadModule compiles a source and registers it with the require registry.
// A specifier that is already loaded is returned from cache.
func (r *Runtime) LoadModule(src ModuleSource) (*Module, error) {
	if cached, ok := r.GetModule(src.Specifier()); ok {
		r.logger.Debug("Module cache hit", zap.String("module", src.Specifier()))
		return cached, nil
	}

	code, err := src.Bytes()
	if err != nil {
		return nil, &ModuleReadError{Module: src.Specifier(), Origin: src.Origin(), Err: err}
	}

	startTime := time.Now()

	// goja programs are runtime independent, so compilation happens off the loop.
	prg, err := goja.Compile(src.Origin(), moduleHeader+string(code)+moduleFooter, false)
	if err != nil {
		return nil, &CompilationError{Module: src.Specifier(), Err: err}
	}

	mod := &Module{
		Specifier:  src.Specifier(),
		Origin:     src.Origin(),
		SizeBytes:  int64(len(code)),
		CompiledAt: time.Now(),
		program:    prg,
	}

	actual, loaded := r.modules.LoadOrStore(mod.Specifier, mod)
	if loaded {
		return actual.(*Module), nil
	}
	r.registry.RegisterNativeModule(mod.Specifier, r.moduleLoader(mod))

	r.logger.Info("Module compiled",
		zap.String("module", mod.Specifier),
		zap.String("origin", mod.Origin),
		zap.Int64("size_bytes", mod.SizeBytes),
		zap.Duration("duration", time.Since(startTime)),
	)

	return mod, nil
}

// GetModule retrieves a compiled module.
func (r *Runtime) GetModule(specifier string) (*Module, bool) {
	if val, ok := r.modules.Load(specifier); ok {
		if mod, ok := val.(*Module); ok {
			return mod, true
		}
	}
	return nil, false
}

// moduleLoader evaluates a compiled bundle as a CommonJS module body.
func (r *Runtime) moduleLoader(mod *Module) require.ModuleLoader {
	return func(vm *goja.Runtime, module *goja.Object) {
		wrapper, err := vm.RunProgram(mod.program)
		if err != nil {
			panic(err)
		}
		body, ok := goja.AssertFunction(wrapper)
		if !ok {
			panic(vm.NewTypeError("module %s did not compile to a function", mod.Specifier))
		}
		exports := module.Get("exports")
		if _, err := body(exports, exports, vm.Get("require"), module); err != nil {
			panic(err)
		}
	}
}
