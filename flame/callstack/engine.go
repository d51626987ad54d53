// Package callstack reconstructs a shadow call stack from a stream of
// executed instructions and interrupt dispatches, emitting open/close
// events as functions are entered and left.
package callstack

import "github.com/gbflame/gbflame/flame/symtab"

// retiOpcode is the Game Boy CPU's RETI instruction: return-from-interrupt, enabling
// interrupts as part of the return.
const retiOpcode = 0xD9

// alwaysIgnored are symbols whose resolution is treated as if no region
// were found at all: helper labels that get jumped into mid-routine as
// part of normal interrupt plumbing rather than marking an actual call.
var alwaysIgnored = map[string]bool{
	".add_VBL":     true,
	".add_int":     true,
	"_display_off": true,
}

// Emitter is the sink for frame open/close events. trace.Emitter satisfies
// this structurally.
type Emitter interface {
	Open(symbolIndex int, at uint64)
	Close(symbolIndex int, at uint64, openAt uint64)
}

type frame struct {
	symbolIndex int
	openAt      uint64
}

// Engine is the shadow call-stack state machine: one shadow stack of
// entered-but-not-exited frames, and a parallel stack tracking which of
// those frames were entered via an interrupt dispatch.
type Engine struct {
	resolver *symtab.Resolver
	emitter  Emitter
	ignored  map[int]bool

	stack          []frame
	interruptStack []int // indices into stack, one per interrupt in flight
}

// NewEngine creates an Engine over the given symbol map and resolver,
// emitting open/close events to emitter.
func NewEngine(symbols *symtab.SymbolMap, resolver *symtab.Resolver, emitter Emitter) *Engine {
	ignored := make(map[int]bool)
	for i, sym := range symbols.Symbols {
		if alwaysIgnored[sym.Name] {
			ignored[i] = true
		}
	}
	return &Engine{resolver: resolver, emitter: emitter, ignored: ignored}
}

// HandleInstruction processes one executed instruction at pc, in the given
// ROM bank, at cycle at. opcode 0xD9 (RETI) is handled as an interrupt
// return instead of a normal instruction.
func (e *Engine) HandleInstruction(opcode uint8, pc uint16, bank uint8, at uint64) {
	if opcode == retiOpcode {
		e.handleRETI(at)
		return
	}
	e.handleNormal(pc, bank, at)
}

// HandleInterrupt processes dispatch of hardware interrupt index (0=VBlank,
// 1=LCD STAT, 2=Timer, 3=Serial, 4=Joypad) at cycle at.
func (e *Engine) HandleInterrupt(index uint8, at uint64) {
	// Defensive reset: any interrupts already in flight are unwound as if
	// RETI had fired for each, so a dispatch always starts from a clean
	// slate even if a prior RETI was somehow missed.
	for len(e.interruptStack) > 0 {
		e.handleRETI(at)
	}

	symbolIndex := int(index)
	e.push(symbolIndex, at)
	e.interruptStack = append(e.interruptStack, len(e.stack)-1)
}

// Shutdown closes every still-open frame, in LIFO order, at cycle at. Call
// this once after the last instruction has been processed.
func (e *Engine) Shutdown(at uint64) {
	for len(e.stack) > 0 {
		e.popTop(at)
	}
	e.interruptStack = e.interruptStack[:0]
}

func (e *Engine) handleRETI(at uint64) {
	if len(e.interruptStack) == 0 {
		return
	}
	frameIdx := e.interruptStack[len(e.interruptStack)-1]
	e.interruptStack = e.interruptStack[:len(e.interruptStack)-1]

	for len(e.stack)-1 > frameIdx {
		e.popTop(at)
	}
	e.popTop(at)
}

func (e *Engine) handleNormal(pc uint16, bank uint8, at uint64) {
	prevSticky := e.resolver.Sticky()

	region, ok := e.resolver.Resolve(pc, bank)
	if !ok {
		return
	}
	if e.ignored[region.SymbolIndex] {
		e.resolver.RestoreSticky(prevSticky)
		return
	}
	if region == prevSticky {
		return
	}

	if pc == region.Addr {
		e.push(region.SymbolIndex, at)
		return
	}

	if idx := e.indexOnStack(region.SymbolIndex); idx >= 0 {
		e.popToButNotIncluding(idx, at)
		return
	}

	if len(e.interruptStack) > 0 {
		e.resolver.RestoreSticky(prevSticky)
		return
	}

	if pc >= 0x4000 {
		e.push(region.SymbolIndex, at)
		return
	}

	// Landed mid-function in bank 0, outside any interrupt, on a symbol not
	// already on the stack: spurious, not a real call.
	e.resolver.RestoreSticky(prevSticky)
}

func (e *Engine) indexOnStack(symbolIndex int) int {
	for i := len(e.stack) - 1; i >= 0; i-- {
		if e.stack[i].symbolIndex == symbolIndex {
			return i
		}
	}
	return -1
}

func (e *Engine) popToButNotIncluding(idx int, at uint64) {
	for len(e.stack)-1 > idx {
		e.popTop(at)
	}
}

func (e *Engine) push(symbolIndex int, at uint64) {
	e.stack = append(e.stack, frame{symbolIndex: symbolIndex, openAt: at})
	e.emitter.Open(symbolIndex, at)
}

func (e *Engine) popTop(at uint64) {
	n := len(e.stack)
	f := e.stack[n-1]
	e.stack = e.stack[:n-1]
	e.emitter.Close(f.symbolIndex, at, f.openAt)
}
