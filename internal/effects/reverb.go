package effects

// Room is a small Schroeder reverb: four parallel combs into two allpasses.
type Room struct {
	combs   [4]delayLine
	allpass [2]delayLine
	wet     float32
}

type delayLine struct {
	buf []float32
	pos int
	fb  float32
}

// NewRoom builds a room. size scales the delay lengths and decay the comb
// feedback, both 0..1; wet is the mix.
func NewRoom(sampleRate int, size, decay, wet float32) *Room {
	base := max(int(float32(sampleRate)*size*0.05), 10)
	fb := clamp(decay, 0, 0.95)
	r := &Room{wet: clamp(wet, 0, 1)}
	for i, ratio := range [4]int{1000, 1117, 1271, 1437} {
		r.combs[i] = delayLine{buf: make([]float32, base*ratio/1000), fb: fb}
	}
	for i, ratio := range [2]int{347, 213} {
		r.allpass[i] = delayLine{buf: make([]float32, max(base*ratio/1000, 1)), fb: 0.5}
	}
	return r
}

func (r *Room) Process(l, rt float32) (float32, float32) {
	in := (l + rt) * 0.5
	var out float32
	for i := range r.combs {
		out += r.combs[i].comb(in)
	}
	out *= 0.25
	for i := range r.allpass {
		out = r.allpass[i].allpass(out)
	}
	dry := 1 - r.wet
	return l*dry + out*r.wet, rt*dry + out*r.wet
}

func (r *Room) Reset() {
	for i := range r.combs {
		r.combs[i].clear()
	}
	for i := range r.allpass {
		r.allpass[i].clear()
	}
}

func (d *delayLine) comb(in float32) float32 {
	out := d.buf[d.pos]
	d.buf[d.pos] = in + out*d.fb
	d.advance()
	return out
}

func (d *delayLine) allpass(in float32) float32 {
	delayed := d.buf[d.pos]
	d.buf[d.pos] = in + delayed*d.fb
	d.advance()
	return delayed - in
}

func (d *delayLine) advance() {
	d.pos++
	if d.pos == len(d.buf) {
		d.pos = 0
	}
}

func (d *delayLine) clear() {
	clear(d.buf)
	d.pos = 0
}
