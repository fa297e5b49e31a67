package closure

// Keys of the training state.
const (
	InteriorLoss = "interior_loss"
	BoundaryLoss = "boundary_loss"
	InitialLoss  = "initial_loss"
	MaxErr       = "max_err"
	L2RelErr     = "l2_rel_err"
)

// State maps a metric name to one value per recorded step. Entries are only
// ever appended.
type State map[string][]float64

func NewState() State {
	return State{
		InteriorLoss: nil,
		BoundaryLoss: nil,
		InitialLoss:  nil,
		MaxErr:       nil,
		L2RelErr:     nil,
	}
}

func (s State) appendLosses(r Report) {
	s[InteriorLoss] = append(s[InteriorLoss], r.Interior)
	s[BoundaryLoss] = append(s[BoundaryLoss], r.Boundary)
	s[InitialLoss] = append(s[InitialLoss], r.Initial)
}

func (s State) appendErrors(maxErr, l2RelErr float64) {
	s[MaxErr] = append(s[MaxErr], maxErr)
	s[L2RelErr] = append(s[L2RelErr], l2RelErr)
}

// Last returns the most recent value of key.
func (s State) Last(key string) (float64, bool) {
	values := s[key]
	if len(values) == 0 {
		return 0, false
	}
	return values[len(values)-1], true
}

// Clone copies every series.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = append([]float64(nil), v...)
	}
	return out
}
