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

// notifier holds the shared state of every observed key. A key is tracked from
// its first observe until its last active observer is disposed.
type notifier struct {
	index  *keyIndex
	states map[string]State
}

func newNotifier() *notifier {
	return &notifier{
		index:  newKeyIndex(),
		states: make(map[string]State),
	}
}

func (n *notifier) observe(key string, slot int) {
	n.index.putOrUpdate(key, slot, true)
	if _, ok := n.states[key]; !ok {
		n.states[key] = Waiting{}
	}
}

func (n *notifier) state(key string) (State, bool) {
	s, ok := n.states[key]
	return s, ok
}

func (n *notifier) dispose(key string, slot int) {
	n.index.putOrUpdate(key, slot, false)
	if n.hasNoObserver(key) {
		delete(n.states, key)
	}
}

func (n *notifier) hasNoObserver(key string) bool {
	return n.index.activeCount(key) == 0
}

// update stores s for a tracked key and calls fn for every active slot
func (n *notifier) update(key string, s State, fn func(slot int)) {
	if _, ok := n.states[key]; ok {
		n.states[key] = s
	}
	n.index.forEachActive(key, fn)
}
