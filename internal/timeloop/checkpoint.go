package timeloop

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Record is the minimal time state needed to resume a run: all three
// fields are authoritative integer quantities, never the derived floats.
type Record struct {
	ITime     uint64
	IDt       uint64
	Iteration int32
}

// The on-disk layout is fixed: itime, idt, iteration, little endian.
func writeRecord(w io.Writer, r Record) error {
	if err := binary.Write(w, binary.LittleEndian, r.ITime); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, r.IDt); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, r.Iteration)
}

func readRecord(rd io.Reader) (Record, error) {
	var r Record
	if err := binary.Read(rd, binary.LittleEndian, &r.ITime); err != nil {
		return r, err
	}
	if err := binary.Read(rd, binary.LittleEndian, &r.IDt); err != nil {
		return r, err
	}
	err := binary.Read(rd, binary.LittleEndian, &r.Iteration)
	return r, err
}

// CheckpointName derives the time-tagged file name from an integer IO time.
func CheckpointName(iotime int) string {
	return fmt.Sprintf("time.%07d", iotime)
}

// Save writes the checkpoint record on the coordinator with
// exclusive-create semantics: an existing file is an error, never silently
// clobbered. The error status is broadcast before it changes control flow
// so all processes abort together.
func (tl *Timeloop) Save(iotime int) error {
	name := CheckpointName(iotime)
	nerror := 0

	if tl.master.Coordinator() {
		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			tl.master.Log().Error("saving checkpoint failed", "file", name, "err", err)
			nerror++
		} else {
			rec := Record{ITime: tl.itime, IDt: tl.idt, Iteration: int32(tl.iteration)}
			if err := writeRecord(f, rec); err != nil {
				tl.master.Log().Error("writing checkpoint failed", "file", name, "err", err)
				nerror++
			}
			if err := f.Close(); err != nil && nerror == 0 {
				nerror++
			}
			if nerror == 0 {
				tl.master.Log().Info("saved checkpoint", "file", name)
			}
		}
	}

	if err := tl.master.BroadcastInt(&nerror); err != nil {
		return err
	}
	if nerror != 0 {
		return fmt.Errorf("timeloop: saving %q failed", name)
	}
	return nil
}

// Load reads the checkpoint record on the coordinator and broadcasts the
// three fields so every process resumes from an identical logical time.
// The floating time state is derived from the integers afterwards.
func (tl *Timeloop) Load(iotime int) error {
	name := CheckpointName(iotime)
	nerror := 0
	var rec Record

	if tl.master.Coordinator() {
		f, err := os.Open(name)
		if err != nil {
			tl.master.Log().Error("checkpoint does not exist", "file", name, "err", err)
			nerror++
		} else {
			rec, err = readRecord(f)
			f.Close()
			if err != nil {
				tl.master.Log().Error("reading checkpoint failed", "file", name, "err", err)
				nerror++
			} else {
				tl.master.Log().Info("loaded checkpoint", "file", name)
			}
		}
	}

	if err := tl.master.BroadcastInt(&nerror); err != nil {
		return err
	}
	if nerror != 0 {
		return fmt.Errorf("timeloop: loading %q failed", name)
	}

	if err := tl.master.BroadcastUint64(&rec.ITime); err != nil {
		return err
	}
	if err := tl.master.BroadcastUint64(&rec.IDt); err != nil {
		return err
	}
	if err := tl.master.BroadcastInt32(&rec.Iteration); err != nil {
		return err
	}

	tl.itime = rec.ITime
	tl.idt = rec.IDt
	tl.iteration = int(rec.Iteration)

	tl.time = float64(tl.itime) / IFactor
	tl.dt = float64(tl.idt) / IFactor
	tl.iotime = int(tl.itime / tl.iiotimeprec)

	return nil
}
