package symtab

import "sort"

// Region is a contiguous address range attributed to a single symbol: the
// span from that symbol's address up to (but not overlapping) the next
// symbol in the same bank, or to the end of the bank for the last symbol.
type Region struct {
	SymbolIndex int
	Addr        uint16
	End         uint16
	Bank        uint8
}

func (r *Region) contains(pc uint16) bool {
	return pc >= r.Addr && pc <= r.End
}

// RegionTable tiles every bank's address space into Regions, one per
// symbol, built once from a SymbolMap.
type RegionTable struct {
	byBank map[uint8][]*Region
}

// bankMax returns the last addressable byte of the address window mapped
// for the given bank: bank 0 occupies the fixed 0x0000-0x3FFF window,
// every other bank is mapped at 0x4000-0x7FFF.
func bankMax(bank uint8) uint16 {
	if bank == 0 {
		return 0x3FFF
	}
	return 0x7FFF
}

// BuildRegions tiles every bank present in m into a RegionTable. Symbols
// are sorted by address within a bank; each region's End is the byte
// before the next symbol's address, or bankMax for the last symbol in
// the bank.
func BuildRegions(m *SymbolMap) *RegionTable {
	type indexed struct {
		index int
		sym   Symbol
	}

	byBank := make(map[uint8][]indexed)
	for i, sym := range m.Symbols {
		byBank[sym.Bank] = append(byBank[sym.Bank], indexed{i, sym})
	}

	table := &RegionTable{byBank: make(map[uint8][]*Region)}
	for bank, entries := range byBank {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].sym.Addr < entries[j].sym.Addr
		})

		max := bankMax(bank)
		regions := make([]*Region, len(entries))
		for i, e := range entries {
			end := max
			if i+1 < len(entries) {
				end = entries[i+1].sym.Addr - 1
			}
			regions[i] = &Region{
				SymbolIndex: e.index,
				Addr:        e.sym.Addr,
				End:         end,
				Bank:        bank,
			}
		}
		table.byBank[bank] = regions
	}

	return table
}

// find does an unindexed linear scan for the region covering pc in bank.
// Region counts per bank are small (tens to low hundreds of symbols), so
// this is simpler than keeping a sorted-slice binary search in step.
func (t *RegionTable) find(bank uint8, pc uint16) *Region {
	for _, r := range t.byBank[bank] {
		if r.contains(pc) {
			return r
		}
	}
	return nil
}

// Resolver resolves a (pc, bank) pair to a Region, keeping a sticky cache
// of the last resolved region so that straight-line execution within a
// function doesn't repay the bank lookup on every instruction.
type Resolver struct {
	table  *RegionTable
	sticky *Region
}

// NewResolver creates a Resolver over the given RegionTable.
func NewResolver(table *RegionTable) *Resolver {
	return &Resolver{table: table}
}

// Sticky returns the currently cached region, or nil if none.
func (r *Resolver) Sticky() *Region {
	return r.sticky
}

// RestoreSticky forces the cached region back to a previously observed
// value, undoing the cache update Resolve just made. Callers use this when
// a resolved region turns out to be one the call-stack engine treats as if
// it didn't exist (always-ignored symbols), since those resolutions must
// not disturb what region tracking considers "current".
func (r *Resolver) RestoreSticky(region *Region) {
	r.sticky = region
}

// targetBank returns the bank a pc actually executes in: bank 0 addresses
// are always bank 0, regardless of which bank is currently mapped in.
func targetBank(pc uint16, currentBank uint8) uint8 {
	if pc < 0x4000 {
		return 0
	}
	return currentBank
}

// Resolve finds the region containing pc given the currently mapped ROM
// bank. The cached region is reused without a table lookup when it still
// covers pc in the right bank; otherwise a fresh lookup is made, which
// becomes the new cached region on a hit or clears the cache on a miss.
func (r *Resolver) Resolve(pc uint16, currentBank uint8) (*Region, bool) {
	bank := targetBank(pc, currentBank)

	if r.sticky != nil && r.sticky.contains(pc) && r.sticky.Bank == bank {
		return r.sticky, true
	}

	region := r.table.find(bank, pc)
	r.sticky = region
	if region == nil {
		return nil, false
	}
	return region, true
}
