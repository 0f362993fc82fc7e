package mqtt

// Sampler lets every rate-th value through.
type Sampler struct {
	count int
	rate  int
}

func NewSampler(rate int) *Sampler {
	if rate < 1 {
		rate = 1
	}
	return &Sampler{rate: rate}
}

func (s *Sampler) Ready() bool {
	s.count++
	if s.count%s.rate == 0 {
		s.count = 0
		return true
	}
	return false
}
