package gpu

// Unwind collects cleanups for a constructor that acquires several
// resources. Call Unwind on failure and Discard once ownership is handed
// over.
type Unwind []func()

func (u *Unwind) Add(cleanup func()) {
	*u = append(*u, cleanup)
}

// Release adds a cleanup that releases t on dev.
func (u *Unwind) Release(dev Device, t Target) {
	u.Add(func() { dev.Release(t) })
}

func (u *Unwind) Unwind() {
	for i := len(*u) - 1; i >= 0; i-- {
		(*u)[i]()
	}
	*u = (*u)[:0]
}

func (u *Unwind) Discard() {
	*u = (*u)[:0]
}
