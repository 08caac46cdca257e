package renderer

// Unwind collects cleanup steps while GPU resources are created so a failed
// Init can release what was already allocated, newest first.
type Unwind []func()

func (u *Unwind) Add(cleanup func()) {
	*u = append(*u, cleanup)
}

func (u *Unwind) Unwind() {
	for i := len(*u) - 1; i >= 0; i-- {
		(*u)[i]()
	}
	*u = nil
}

// Discard forgets the collected steps once initialisation succeeded.
func (u *Unwind) Discard() {
	*u = nil
}
