package vm

import (
	"github.com/embervm/embervm/internal/bytecode"
	"github.com/embervm/embervm/internal/process"
	"github.com/embervm/embervm/internal/value"
)

// Program is a fully linked module: bytecode.Module's pool-relative
// indices (Class.MethodIndices, Class.DropperIndex, constant-pool array
// indices) resolved into the pointer-based structures internal/value and
// internal/process execute against directly. Building a Program is the
// one responsibility internal/bytecode's Decode explicitly defers to
// this package (see bytecode.Decode's doc comment).
type Program struct {
	Constants []value.Value
	Classes   []*value.Class
	Methods   []*process.Method

	// EntryClass/EntryMethod are the linked form of the module index's
	// entry-point indices (see bytecode.ModuleIndex); -1 if this module
	// names no entry point (a library module rather than an executable).
	EntryClass  int32
	EntryMethod int32
}

// Load decodes data as a bytecode module and links it into a Program.
// name is used only to annotate a returned *LoadError.
func Load(data []byte, name string) (*Program, error) {
	mod, err := bytecode.Decode(data)
	if err != nil {
		return nil, &LoadError{Module: name, Err: err}
	}
	prog, err := link(mod)
	if err != nil {
		return nil, &LoadError{Module: name, Err: err}
	}
	return prog, nil
}

// link performs the resolution step: decoded methods become
// *process.Method (the form the interpreter's frames reference), and
// decoded classes become *value.Class with their method tables and
// droppers resolved to the corresponding *process.Method pointers,
// stashed as value.Method.Compiled (an opaque `any`, per
// internal/value/class.go's doc comment, to avoid a value -> process
// import cycle).
func link(mod *bytecode.Module) (*Program, error) {
	constants, err := linkConstants(mod.Constants)
	if err != nil {
		return nil, err
	}

	methods := make([]*process.Method, len(mod.Methods))
	for i, m := range mod.Methods {
		methods[i] = &process.Method{
			Name:         m.Name,
			Instructions: m.Instructions,
			NumRegisters: int(m.NumRegisters),
			NumParams:    int(m.NumParams),
			JumpTable:    m.JumpTable,
			SourceFile:   m.SourceFile,
			SourceLines:  m.SourceLines,
		}
	}

	classes := make([]*value.Class, len(mod.Classes))
	for i, c := range mod.Classes {
		classes[i] = &value.Class{
			Name:           c.Name,
			FieldCount:     int(c.FieldCount),
			IsProcessClass: c.IsProcessClass,
		}
	}
	for i, c := range mod.Classes {
		vc := classes[i]
		for _, idx := range c.MethodIndices {
			if int(idx) >= len(mod.Methods) {
				return nil, ErrUnresolvedMethod
			}
			bm := mod.Methods[idx]
			vc.AddMethod(&value.Method{
				Name:        bm.Name,
				Fingerprint: value.Fingerprint(bm.Name),
				Compiled:    methods[idx],
			})
		}
		if c.DropperIndex >= 0 {
			if int(c.DropperIndex) >= len(mod.Methods) {
				return nil, ErrUnresolvedMethod
			}
			for _, existing := range vc.MethodsByIndex {
				if existing.Compiled == methods[c.DropperIndex] {
					vc.Dropper = existing
					break
				}
			}
			if vc.Dropper == nil {
				// The dropper need not also appear in MethodIndices
				// (it's invoked only by the drop-expansion pass, never
				// by name); register it directly if it wasn't already
				// found among the regular methods.
				bm := mod.Methods[c.DropperIndex]
				vc.Dropper = &value.Method{
					Name:        bm.Name,
					Fingerprint: value.Fingerprint(bm.Name),
					Compiled:    methods[c.DropperIndex],
				}
			}
		}
	}

	return &Program{
		Constants:   constants,
		Classes:     classes,
		Methods:     methods,
		EntryClass:  mod.EntryClass,
		EntryMethod: mod.EntryMethod,
	}, nil
}

// linkConstants converts a decoded constant pool into runtime values.
// ConstArray entries reference other pool indices; the bytecode format
// requires a constant pool to list an array's elements before the array
// itself (spec.md §4.H: constants are emitted in dependency order), so a
// single forward pass suffices.
func linkConstants(pool []bytecode.Constant) ([]value.Value, error) {
	out := make([]value.Value, len(pool))
	for i, c := range pool {
		switch c.Tag {
		case bytecode.ConstInteger:
			out[i] = value.Int(c.Int)
		case bytecode.ConstFloat:
			out[i] = value.Float(c.Float)
		case bytecode.ConstString:
			out[i] = value.Heap(value.Permanent, value.NewString(nil, c.Str))
		case bytecode.ConstArray:
			elems := make([]value.Value, len(c.Indices))
			for j, idx := range c.Indices {
				if int(idx) >= len(out) || int(idx) > i {
					return nil, ErrUnresolvedClass
				}
				elems[j] = out[idx]
			}
			out[i] = value.Heap(value.Permanent, value.NewArray(nil, elems))
		default:
			return nil, bytecode.ErrInvalidConstantTag
		}
	}
	return out, nil
}

// FindMethod resolves a class/method name pair within the program,
// e.g. to locate the entry point RunMain should start. Linear scan: the
// program's class/method counts are compiler output, not runtime hot
// paths.
func (p *Program) FindMethod(className, methodName string) (*process.Method, error) {
	for _, c := range p.Classes {
		if c.Name != className {
			continue
		}
		for _, m := range c.MethodsByIndex {
			if m.Name == methodName {
				pm, _ := m.Compiled.(*process.Method)
				if pm == nil {
					return nil, ErrNoSuchMethod
				}
				return pm, nil
			}
		}
		return nil, ErrNoSuchMethod
	}
	return nil, ErrNoSuchClass
}

// FindClass resolves a class by name.
func (p *Program) FindClass(name string) (*value.Class, error) {
	for _, c := range p.Classes {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, ErrNoSuchClass
}

// EntryPoint resolves the program's module-index entry point, letting
// cmd/embervm's `run`/`test` subcommands start a program without
// hard-coding a conventional class/method name (the original
// implementation's image carries entry_class/entry_method the same way;
// see DESIGN.md).
func (p *Program) EntryPoint() (class *value.Class, method *process.Method, err error) {
	if p.EntryClass < 0 || p.EntryMethod < 0 {
		return nil, nil, ErrNoEntryPoint
	}
	if int(p.EntryClass) >= len(p.Classes) {
		return nil, nil, ErrUnresolvedClass
	}
	if int(p.EntryMethod) >= len(p.Methods) {
		return nil, nil, ErrUnresolvedMethod
	}
	return p.Classes[p.EntryClass], p.Methods[p.EntryMethod], nil
}
