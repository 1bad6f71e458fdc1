//go:build !unix

package arena

// Mmap returns an Allocator whose Alloc always fails with ErrUnsupported.
func Mmap() Allocator {
	return mmap{}
}

type mmap struct{}

func (mmap) Alloc(int) ([]byte, error) {
	return nil, ErrUnsupported
}

func (mmap) Free([]byte) error {
	return ErrUnsupported
}
