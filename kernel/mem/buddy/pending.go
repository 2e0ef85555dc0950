package buddy

import "github.com/stacsos/kernel/kernel/mem/pfn"

// MaxPendingMerges is the number of bits tracked per order by the
// deferred-merge bitmap (spec.md §4.5). Because the constant is exactly
// 64, each order's bitmap fits in a single machine word -- there is no
// idx/64 selection step to perform, only the idx%64 bit offset.
const MaxPendingMerges = 64

// pendingBitmap records, for one order, which lower-PFN merges have been
// deferred. It is a hint, never a source of truth: every bit read is
// followed by a re-check against the free lists (see Allocator.mergeBuddies
// and Allocator.cleanupPendingMergesAt). The hash idx(pfn, order) =
// (pfn + order) mod 64 is collision-prone by design -- two different lower
// PFNs at the same order can set the same bit, and clearing it later may
// discard the wrong candidate's intent. That's acceptable because
// cleanupPendingMergesAt always re-verifies before merging.
type pendingBitmap uint64

// idx computes the bit position a given (lower pfn, order) pair hashes to.
func idx(lower pfn.Pfn, order uint) uint {
	return uint((uint64(lower) + uint64(order)) % MaxPendingMerges)
}

func (b *pendingBitmap) set(lower pfn.Pfn, order uint) {
	*b |= pendingBitmap(1) << idx(lower, order)
}

func (b *pendingBitmap) clear(lower pfn.Pfn, order uint) {
	*b &^= pendingBitmap(1) << idx(lower, order)
}

func (b pendingBitmap) isSet(lower pfn.Pfn, order uint) bool {
	return b&(pendingBitmap(1)<<idx(lower, order)) != 0
}

// clearBit clears bit position i directly, used by cleanup once a
// candidate (real or a collision victim) has been considered.
func (b *pendingBitmap) clearBit(i uint) {
	*b &^= pendingBitmap(1) << i
}

// setBits returns the positions of every bit currently set, lowest first.
func (b pendingBitmap) setBits() []uint {
	var out []uint
	for i := uint(0); i < MaxPendingMerges; i++ {
		if b&(pendingBitmap(1)<<i) != 0 {
			out = append(out, i)
		}
	}
	return out
}

// cleanupPendingMergesAt interprets every set bit in order k's bitmap as a
// candidate lower PFN (bit position i stands in directly for pfn.Pfn(i),
// per spec.md §4.5/§9 -- the hash is never inverted, only guessed at),
// verifies it against the free lists, merges if both buddies are really
// free, and clears the bit regardless of the outcome.
func (a *Allocator) cleanupPendingMergesAt(order uint) {
	for _, bit := range a.pending[order].setBits() {
		candidate := pfn.Pfn(bit)
		if candidate.AlignedTo(order + 1) {
			a.mergeBuddies(order, candidate)
		}
		a.pending[order].clearBit(bit)
	}
}

// CleanupPendingMerges performs a best-effort sweep over every order's
// deferred-merge bitmap. It may clear bits whose true owner was lost to a
// hash collision; correctness is preserved because every merge attempt is
// re-verified against the free lists before it is committed.
func (a *Allocator) CleanupPendingMerges() {
	for order := uint(0); order < LastOrder; order++ {
		a.cleanupPendingMergesAt(order)
	}
}
