package databuf

import (
	"fmt"
	"time"

	"github.com/greedchase/daqbuf/stsem"
)

// WaitTimeout bounds WaitFree and WaitFilled unless SetWaitTimeout says otherwise.
const WaitTimeout = 250 * time.Millisecond

// SetWaitTimeout changes the bound of this handle's waits. Non-positive
// values are ignored, waits are never unbounded.
func (d *Databuf) SetWaitTimeout(timeout time.Duration) {
	if timeout > 0 {
		d.timeout = timeout
	}
}

func (d *Databuf) WaitTimeout() time.Duration {
	return d.timeout
}

func (d *Databuf) check(i int) error {
	if d.shm == nil {
		return ErrDetached
	}
	if i < 0 || i >= d.layout.NBlock {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrBlockIndex, i, d.layout.NBlock)
	}
	return nil
}

// SetFree declares block i FREE whatever its state. It never blocks.
func (d *Databuf) SetFree(i int) error {
	return d.set("databuf.SetFree", i, StateFree)
}

// SetFilled declares block i FILLED whatever its state. Call it only after
// header and payload are completely written.
func (d *Databuf) SetFilled(i int) error {
	return d.set("databuf.SetFilled", i, StateFilled)
}

func (d *Databuf) set(op string, i int, s State) error {
	if err := d.check(i); err != nil {
		return err
	}
	if err := d.sem.SetVal(i, int(s)); err != nil {
		return sysErr(op, err)
	}
	return nil
}

// BlockStatus is the raw semaphore value of block i: 0 FREE, 1 FILLED.
func (d *Databuf) BlockStatus(i int) (int, error) {
	if err := d.check(i); err != nil {
		return 0, err
	}
	v, err := d.sem.GetVal(i)
	if err != nil {
		return 0, sysErr("databuf.BlockStatus", err)
	}
	return v, nil
}

// TotalStatus is the number of FILLED blocks, read in one call. It is for
// monitoring; the value may be stale by the time it is returned.
func (d *Databuf) TotalStatus() (int, error) {
	vals, err := d.values("databuf.TotalStatus")
	if err != nil {
		return 0, err
	}
	total := 0
	for _, v := range vals {
		total += int(v)
	}
	return total, nil
}

// Snapshot is the state of every block, read in one call.
func (d *Databuf) Snapshot() ([]State, error) {
	vals, err := d.values("databuf.Snapshot")
	if err != nil {
		return nil, err
	}
	states := make([]State, len(vals))
	for i, v := range vals {
		states[i] = State(v)
	}
	return states, nil
}

func (d *Databuf) values(op string) ([]uint16, error) {
	if d.shm == nil {
		return nil, ErrDetached
	}
	vals, err := d.sem.GetAll()
	if err != nil {
		return nil, sysErr(op, err)
	}
	return vals, nil
}

// WaitFree blocks until block i is FREE or the wait timeout passes.
// It returns ErrTimeout on timeout, and a SysError for which IsInterrupted
// is true when a signal cut the wait short. Neither is logged.
func (d *Databuf) WaitFree(i int) error {
	return d.wait("databuf.WaitFree", i, []stsem.Sembuf{
		{Num: uint16(i), Op: 0},
	})
}

// WaitFilled blocks until block i is FILLED or the wait timeout passes,
// with the outcomes of WaitFree. It does not consume the FILLED state:
// the semaphore is taken and given back in one atomic operation, so every
// other waiter still sees the block FILLED.
func (d *Databuf) WaitFilled(i int) error {
	return d.wait("databuf.WaitFilled", i, []stsem.Sembuf{
		{Num: uint16(i), Op: -1},
		{Num: uint16(i), Op: 1},
	})
}

// semOp performs the semaphore operations of a wait. Tests replace it to
// produce outcomes a real semaphore cannot be made to return on demand.
var semOp = (*stsem.Set).Op

func (d *Databuf) wait(op string, i int, ops []stsem.Sembuf) error {
	if err := d.check(i); err != nil {
		return err
	}
	err := semOp(d.sem, ops, d.timeout)
	switch {
	case err == nil:
		return nil
	case stsem.IsTimeout(err):
		return ErrTimeout
	case stsem.IsInterrupted(err):
		return &SysError{Op: op, Err: err}
	}
	return sysErrAt(2, op, err)
}
