package audio

import "sync"

// mixer sums active voices into one signed 16-bit mono PCM stream.
// It never reports EOF, so a single player can read it for the lifetime
// of the process.
type mixer struct {
	mu     sync.Mutex
	voices []Voice
}

// Add starts v on the next read.
func (m *mixer) Add(v Voice) {
	m.mu.Lock()
	m.voices = append(m.voices, v)
	m.mu.Unlock()
}

// Active returns how many voices are still sounding.
func (m *mixer) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

// Read implements io.Reader.
func (m *mixer) Read(p []byte) (int, error) {
	samples := len(p) / 2

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i < samples; i++ {
		var sum float64
		for idx := 0; idx < len(m.voices); idx++ {
			val, done := m.voices[idx].Sample()
			sum += val
			if done {
				m.voices = append(m.voices[:idx], m.voices[idx+1:]...)
				idx--
			}
		}
		if sum > 1 {
			sum = 1
		} else if sum < -1 {
			sum = -1
		}
		v := int16(sum * 32767)
		p[2*i] = byte(v)
		p[2*i+1] = byte(v >> 8)
	}
	return samples * 2, nil
}
