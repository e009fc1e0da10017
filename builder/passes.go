package builder

import "github.com/gyuseokByeon/asmjit/internal/arena"

// StripSentinels returns a Pass that removes every KindSentinel node from
// the graph. Sentinels mark split points a caller used while constructing
// the graph (e.g. "insert future nodes here"); once construction is done
// they carry no encodable content and Finalize would otherwise have to keep
// skipping them forever.
//
// The removal decision for a node must survive past the point the walk has
// moved on to its successor (Remove unlinks prev/next, which would corrupt
// a single forward walk that both marks and removes in the same pass), so
// this pass marks first into a scratch bitmap sized to the node count, then
// removes in a second walk — the scratch allocation RunPass hands every
// pass exists for exactly this kind of two-phase bookkeeping.
func StripSentinels() Pass {
	return func(b *Builder, scratch *arena.Arena, logger Logger) {
		n := 0
		for cur := b.head; cur != nil; cur = cur.next {
			n++
		}
		mark, err := scratch.Alloc(n)
		if err != nil {
			logger.Printf("strip-sentinels: scratch alloc failed: %v", err)
			return
		}
		i := 0
		for cur := b.head; cur != nil; cur = cur.next {
			if cur.kind == KindSentinel {
				mark[i] = 1
			}
			i++
		}
		removed := 0
		i = 0
		cur := b.head
		for cur != nil {
			next := cur.next
			if mark[i] == 1 {
				b.Remove(cur)
				removed++
			}
			cur = next
			i++
		}
		logger.Printf("strip-sentinels: removed %d node(s)", removed)
	}
}
