/*
MIT License

Copyright (c) 2025 Yuval Adar <adary@adary.org>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package gallery

// slotRef is one UI slot observing a key. Two refs are the same observer when
// their slots match, whatever their active flags.
type slotRef struct {
	slot   int
	active bool
}

// keyIndex maps a key to the slots that have observed it. Entries are kept after
// dispose with active cleared.
type keyIndex struct {
	refs map[string][]slotRef
}

func newKeyIndex() *keyIndex {
	return &keyIndex{refs: make(map[string][]slotRef)}
}

func (k *keyIndex) putOrUpdate(key string, slot int, active bool) {
	refs := k.refs[key]
	for i := range refs {
		if refs[i].slot == slot {
			refs[i].active = active
			return
		}
	}
	k.refs[key] = append(refs, slotRef{slot: slot, active: active})
}

func (k *keyIndex) activeCount(key string) int {
	count := 0
	for _, ref := range k.refs[key] {
		if ref.active {
			count++
		}
	}
	return count
}

func (k *keyIndex) forEachActive(key string, fn func(slot int)) {
	for _, ref := range k.refs[key] {
		if ref.active {
			fn(ref.slot)
		}
	}
}
