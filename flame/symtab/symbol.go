// Package symtab builds the symbol table a trace run resolves program
// counters against: a flat list of named addresses parsed from a linker map,
// plus the fixed set of interrupt vectors every run carries regardless of
// what the map file contains.
package symtab

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Symbol is one named address in the program, tagged with the ROM bank it
// lives in.
type Symbol struct {
	Name string
	Addr uint16
	Bank uint8
}

// SymbolMap is the full, deduplicated, ordered symbol list for a run. Index
// into Symbols is the symbol's stable identity: it is what call-stack events
// and Speedscope frames reference instead of carrying the name around.
type SymbolMap struct {
	Symbols []Symbol
}

// InterruptVectorCount is how many fixed interrupt-vector symbols are
// prepended to every SymbolMap, in hardware IF/IE bit order.
const InterruptVectorCount = 5

// interruptVectors are the five Game Boy interrupt entry points, in the same
// bit order as IF/IE (0=VBlank, 1=LCD STAT, 2=Timer, 3=Serial, 4=Joypad).
// They always occupy Symbols[0:5] so a hardware interrupt index can be used
// directly as a symbol index.
var interruptVectors = []Symbol{
	{Name: "[INTERRUPT] VBL", Addr: 0x40, Bank: 0},
	{Name: "[INTERRUPT] LCD", Addr: 0x48, Bank: 0},
	{Name: "[INTERRUPT] TIM", Addr: 0x50, Bank: 0},
	{Name: "[INTERRUPT] SIO", Addr: 0x58, Bank: 0},
	{Name: "[INTERRUPT] JOY", Addr: 0x60, Bank: 0},
}

// acceptPatterns and rejectPatterns are glob-style (only `*` as a wildcard)
// rules over the raw symbol name from a map-file line. A line is kept only
// if it matches an accept pattern and no reject pattern.
var (
	acceptPatterns = compileGlobs(
		"_*", "F*", ".*ISR", ".remove_*", ".add_*", ".mod", ".div",
	)
	rejectPatterns = compileGlobs(
		"*_REG*", "*_rRAM*", "*_rROM*", "*_rMBC*",
		"*__start_save*", "*___bank_*", "*___func_*", "*___mute_mask_*",
	)
)

func compileGlobs(globs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(globs))
	for i, g := range globs {
		out[i] = globToRegexp(g)
	}
	return out
}

func globToRegexp(glob string) *regexp.Regexp {
	parts := strings.Split(glob, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
}

func matchesAny(patterns []*regexp.Regexp, name string) bool {
	for _, p := range patterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// definitionLine is a single accepted "DEF $hex name" record from a linker
// map, before canonicalization.
//
// A map file looks like:
//
//	DEF $0150 _main
//	DEF $014100 F_update$state$002_handle_input
//	DEF $00ffe0 _SPRITE00_REG
//
// The address is the full linked value; its low 16 bits are the address,
// and (for addresses at or above 0x4000) its bits above 16 carry the bank.
var definitionLineRe = regexp.MustCompile(`^DEF\s+\$([0-9A-Fa-f]+)\s+(\S+)\s*$`)

// Parse reads a linker map and returns the symbols it defines, filtered by
// the accept/reject name rules, canonicalized, deduplicated, and prepended
// with the fixed interrupt vectors.
func Parse(r io.Reader) (*SymbolMap, error) {
	m := &SymbolMap{Symbols: append([]Symbol(nil), interruptVectors...)}

	seen := make(map[bankAddr]bool, len(interruptVectors))
	for _, v := range interruptVectors {
		seen[bankAddr{v.Bank, v.Addr}] = true
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		match := definitionLineRe.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		rawName := match[2]
		if !matchesAny(acceptPatterns, rawName) || matchesAny(rejectPatterns, rawName) {
			continue
		}

		hexAddr, err := strconv.ParseUint(match[1], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("symtab: line %d: bad address %q: %w", lineNo, match[1], err)
		}

		sym := decompose(uint32(hexAddr))
		sym.Name = canonicalize(rawName)

		key := bankAddr{sym.Bank, sym.Addr}
		if seen[key] {
			continue
		}
		seen[key] = true

		m.Symbols = append(m.Symbols, sym)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("symtab: %w", err)
	}

	return m, nil
}

// Empty returns a SymbolMap seeded with only the fixed interrupt vectors,
// used when no linker map is available.
func Empty() *SymbolMap {
	return &SymbolMap{Symbols: append([]Symbol(nil), interruptVectors...)}
}

type bankAddr struct {
	bank uint8
	addr uint16
}

// decompose splits a linked address into its 16-bit address and bank,
// treating bank-0 addresses (below 0x4000) as always bank 0 regardless of
// what the linker encoded in the upper bits.
func decompose(hexAddr uint32) Symbol {
	addr := uint16(hexAddr & 0xFFFF)
	var bank uint8
	if addr >= 0x4000 {
		bank = uint8(hexAddr >> 16)
	}
	return Symbol{Addr: addr, Bank: bank}
}

// canonicalize strips SDCC's local-scope mangling: a leading "F...$" prefix
// (function-scope marker) and any suffix starting at the first remaining
// "$" (scope/sequence disambiguator).
func canonicalize(name string) string {
	if strings.HasPrefix(name, "F") {
		if i := strings.IndexByte(name, '$'); i >= 0 {
			name = name[i+1:]
		}
	}
	if i := strings.IndexByte(name, '$'); i >= 0 {
		name = name[:i]
	}
	return name
}
