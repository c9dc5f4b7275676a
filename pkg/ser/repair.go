package ser

import (
	"encoding/binary"
	"os"
)

// RepairHeader returns h with FrameCount replaced by the number of whole
// frames a file of size bytes can hold. The other fields must already be
// valid.
func RepairHeader(h Header, size int64) (Header, error) {
	if size < HeaderSize {
		return h, &FormatError{Field: "file_size", Value: size, Err: ErrTooShortForHeader}
	}
	if err := validate(h, size, "", OpenOptions{LenientDepth: true}, false); err != nil {
		return h, err
	}
	n := framesAvailable(h, size)
	if n <= 0 {
		return h, &FormatError{Field: "frame_count", Value: int64(h.FrameCount), Err: ErrTooShortForFrames}
	}
	if n > int64(^uint32(0)>>1) {
		n = int64(^uint32(0) >> 1)
	}
	h.FrameCount = int32(n)
	return h, nil
}

// Repair rewrites the frame count of the SER file at path in place so that
// it matches the frames actually present. Only the four bytes at offset 38
// are modified.
func Repair(path string) (Header, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return Header{}, ioError("open", path, ErrOpen, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return Header{}, ioError("open", path, ErrOpen, err)
	}
	h, err := readHeader(f, st.Size(), path)
	if err != nil {
		return h, err
	}
	repaired, err := RepairHeader(h, st.Size())
	if err != nil {
		if fe, ok := err.(*FormatError); ok {
			fe.Path = path
		}
		return h, err
	}

	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(repaired.FrameCount))
	if _, err := f.WriteAt(count[:], offsetFrameCount); err != nil {
		return h, ioError("write", path, ErrWrite, err)
	}
	if err := f.Sync(); err != nil {
		return h, ioError("write", path, ErrWrite, err)
	}
	return repaired, nil
}
