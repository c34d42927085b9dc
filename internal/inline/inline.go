package inline

// Inline runs spec.md §4.K's pass over every method in p, splicing a
// callee's body into each eligible static call site in place. cap is
// the accumulated-weight ceiling (DefaultCap if zero).
//
// This performs one pass over the call sites present when Inline is
// called — a newly-spliced call site belonging to an inlined callee is
// not itself reconsidered for further inlining in the same call. A
// caller wanting nested inlining calls Inline again; the simplification
// keeps this pass's termination obvious (no risk of the weight cap
// being circumvented by chained re-inlining within a single call).
func Inline(p *Program, cap int) {
	if cap == 0 {
		cap = DefaultCap
	}

	graph := buildCallGraph(p)
	comp := tarjanSCC(graph)
	compSize := make(map[int]int, len(comp))
	for _, c := range comp {
		compSize[c]++
	}
	recursive := func(id MethodID) bool {
		return compSize[comp[id]] > 1 || hasSelfEdge(graph, id)
	}

	callSiteCount := make(map[MethodID]int)
	for _, m := range p.Methods {
		for _, b := range m.Blocks {
			for _, instr := range b.Instrs {
				if instr.Kind == InstrCallStatic {
					callSiteCount[instr.Callee]++
				}
			}
		}
	}

	for _, caller := range p.Methods {
		inlineIntoMethod(p, caller, cap, recursive, callSiteCount)
	}
}

// inlineIntoMethod walks caller's original blocks, splicing an
// eligible callee at each InstrCallStatic found. runningWeight tracks
// the caller's accumulated weight as splices add to it, per spec.md
// §4.K's "caller's accumulated weight plus the callee's weight" rule.
func inlineIntoMethod(p *Program, caller *Method, cap int, recursive func(MethodID) bool, callSiteCount map[MethodID]int) {
	runningWeight := Weight(caller)

	// Blocks is a growing slice this function itself appends to
	// (splice introduces new blocks); iterate by position so those are
	// skipped — a spliced-in callee body is never itself a candidate
	// in this same pass (see Inline's doc comment).
	originalBlockCount := len(caller.Blocks)
	for bi := 0; bi < originalBlockCount; bi++ {
		b := caller.Blocks[bi]

		// from skips call sites of b already found ineligible.
		from := 0
		for {
			idx := -1
			for i := from; i < len(b.Instrs); i++ {
				if b.Instrs[i].Kind == InstrCallStatic {
					idx = i
					break
				}
			}
			if idx < 0 {
				break
			}
			from = idx + 1
			instr := b.Instrs[idx]
			callee, ok := p.Methods[instr.Callee]
			if !ok || callee == caller {
				continue
			}

			if recursive(instr.Callee) {
				continue
			}
			calleeWeight := Weight(callee)
			eligible := callee.AlwaysInline ||
				calleeWeight == 0 ||
				callSiteCount[instr.Callee] <= 2 ||
				runningWeight+calleeWeight < cap
			if !eligible {
				continue
			}

			b = spliceCall(p, caller, b, idx, callee)
			from = 0
			runningWeight += calleeWeight
			p.InlinedCallInfo = append(p.InlinedCallInfo, InlineRecord{
				Caller: caller.ID,
				Callee: callee.ID,
				Block:  b.ID,
			})
		}
	}
}

func indexOfCallStatic(b *Block) int {
	for i, instr := range b.Instrs {
		if instr.Kind == InstrCallStatic {
			return i
		}
	}
	return -1
}

// spliceCall replaces the InstrCallStatic at index idx of block b with
// callee's body, renumbering callee's registers and block ids so they
// never collide with caller's. Returns the continuation block — the
// tail end of b's original instructions, now reachable once callee's
// (renumbered) Return instructions Goto into it — since that is where
// the caller loop should resume scanning for further call sites.
func spliceCall(p *Program, caller *Method, b *Block, idx int, callee *Method) *Block {
	instr := b.Instrs[idx]
	regOffset := uint16(caller.NumRegisters)
	caller.NumRegisters += callee.NumRegisters

	blockIDOf := make(map[BlockID]BlockID, len(callee.Blocks))
	for _, cb := range callee.Blocks {
		blockIDOf[cb.ID] = p.allocBlockID(caller.ID, caller)
	}
	continuationID := p.allocBlockID(caller.ID, caller)

	continuation := &Block{
		ID:         continuationID,
		Instrs:     append([]Instr{}, b.Instrs[idx+1:]...),
		Successors: append([]BlockID{}, b.Successors...),
	}

	for _, cb := range callee.Blocks {
		copied := &Block{ID: blockIDOf[cb.ID]}
		endsInReturn := len(cb.Instrs) > 0 && cb.Instrs[len(cb.Instrs)-1].Kind == InstrReturn
		for _, ci := range cb.Instrs {
			copied.Instrs = append(copied.Instrs, renumberInstr(ci, regOffset, blockIDOf, instr.Register, continuationID))
		}
		if endsInReturn {
			// renumberInstr turned the trailing Return into a bare
			// MoveRegister; it still needs the Goto that hands control
			// to the continuation, which the block's own successors
			// (empty, since the original Return block had none) can't
			// express.
			copied.Instrs = append(copied.Instrs, Instr{Kind: InstrGoto, Target: continuationID})
			copied.Successors = []BlockID{continuationID}
		} else {
			for _, succ := range cb.Successors {
				copied.Successors = append(copied.Successors, blockIDOf[succ])
			}
		}
		caller.Blocks = append(caller.Blocks, copied)
	}

	// Bind the call's arguments into the callee's (renumbered)
	// parameter registers via explicit MoveRegister instructions, the
	// same instruction the Return rewrite below uses to hand back a
	// result — one uniform mechanism for "value crosses an inlined
	// call boundary" in either direction.
	var bindings []Instr
	for i := 0; i < callee.NumParams; i++ {
		bindings = append(bindings, Instr{
			Kind:     InstrMoveRegister,
			Register: regOffset + uint16(i),
			Source:   instr.ArgBase + uint16(i),
		})
	}

	b.Instrs = append(append(b.Instrs[:idx:idx], bindings...), Instr{Kind: InstrGoto, Target: blockIDOf[callee.Entry]})
	b.Successors = []BlockID{blockIDOf[callee.Entry]}

	caller.Blocks = append(caller.Blocks, continuation)
	return continuation
}

// renumberInstr copies a callee instruction into its spliced position:
// register operands shift by regOffset, block targets translate
// through blockIDOf, and a Return becomes a MoveRegister (into the
// original call's destination register); spliceCall then appends the
// Goto to the continuation block — together spec.md §4.K's "rewrites
// Return into MoveRegister + Goto".
func renumberInstr(ci Instr, regOffset uint16, blockIDOf map[BlockID]BlockID, destReg uint16, continuationID BlockID) Instr {
	switch ci.Kind {
	case InstrReturn:
		return Instr{Kind: InstrMoveRegister, Register: destReg, Source: ci.Source + regOffset}
	case InstrGoto, InstrBranch:
		out := ci
		out.Register += regOffset
		out.Target = blockIDOf[ci.Target]
		return out
	case InstrCallStatic:
		out := ci
		out.Register += regOffset
		out.ArgBase += regOffset
		return out
	default:
		out := ci
		out.Register += regOffset
		out.Source += regOffset
		return out
	}
}
