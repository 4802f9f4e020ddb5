package session

// ringLog keeps the most recent lines, evicting the oldest first.
type ringLog struct {
	buf   []string
	start int
	size  int
}

func newRingLog(capacity int) *ringLog {
	if capacity <= 0 {
		capacity = 1
	}
	return &ringLog{buf: make([]string, capacity)}
}

func (r *ringLog) push(line string) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = line
		r.size++
		return
	}
	r.buf[r.start] = line
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ringLog) lines() []string {
	out := make([]string, 0, r.size)
	for i := range r.size {
		out = append(out, r.buf[(r.start+i)%len(r.buf)])
	}
	return out
}
