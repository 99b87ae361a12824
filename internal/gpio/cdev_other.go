//go:build !linux

package gpio

// CdevOpener opens a chip through the Linux GPIO character device.
type CdevOpener struct {
	Pattern  string
	Fallback int
	Consumer string
}

func (o CdevOpener) Open() (Controller, error) {
	return nil, ErrUnsupported
}
