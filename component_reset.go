// component_reset.go - Reset() methods for hard-reset support across components.

package main

// TerminalMMIO.Reset clears all buffers and restores defaults.
func (t *TerminalMMIO) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.inputHead = 0
	t.inputTail = 0
	t.inputLen = 0
	t.newlines = 0
	t.outputBuf = t.outputBuf[:0]
	t.echoEnabled = true
	t.lineInputMode = true
	t.rawKeyHead = 0
	t.rawKeyTail = 0
	t.rawKeyLen = 0
	t.SentinelTriggered.Store(false)
}
