package blockstore

// Allocate claims the lowest-numbered free block. When every block is in
// use it reports KindFull and changes nothing. The dirty map is not touched.
func (store *Store) Allocate() (BlockID, error) {
	if err := store.usable(opAllocate); err != nil {
		return 0, err
	}

	i, ok := store.fbm.FirstZeroFrom(ReservedBlocks)
	if !ok {
		return 0, &Error{Op: opAllocate, Kind: KindFull}
	}
	id := BlockID(i)
	if !id.Valid() {
		return 0, &Error{Op: opAllocate, Kind: KindInternal, ID: id, Err: ErrInvalidBlockID}
	}
	store.fbm.Set(i)
	return id, nil
}

// Request claims block id specifically.
func (store *Store) Request(id BlockID) (BlockID, error) {
	if err := store.usable(opRequest); err != nil {
		return 0, err
	}
	if !id.Valid() {
		return 0, paramError(opRequest, id, ErrInvalidBlockID)
	}
	if store.fbm.Test(int(id)) {
		return 0, &Error{Op: opRequest, Kind: KindInUse, ID: id}
	}
	store.fbm.Set(int(id))
	return id, nil
}

// Release marks id free and returns it. Releasing a free block is allowed.
// The block keeps its data and its dirty bit.
func (store *Store) Release(id BlockID) (BlockID, error) {
	if err := store.usable(opRelease); err != nil {
		return 0, err
	}
	if !id.Valid() {
		return 0, paramError(opRelease, id, ErrInvalidBlockID)
	}
	store.fbm.Reset(int(id))
	return id, nil
}

// Allocated reports whether id is a data block currently marked in use.
func (store *Store) Allocated(id BlockID) bool {
	if store.usable("allocated") != nil || !id.Valid() {
		return false
	}
	return store.fbm.Test(int(id))
}

// Dirty reports whether id is a data block written since Create or Import.
func (store *Store) Dirty(id BlockID) bool {
	if store.usable("dirty") != nil || !id.Valid() {
		return false
	}
	return store.dbm.Test(int(id))
}

// FreeBlocks returns how many more blocks Allocate can hand out.
func (store *Store) FreeBlocks() int {
	if store.usable("free blocks") != nil {
		return 0
	}
	return BlockCount - store.fbm.Count()
}

// DirtyBlocks returns the number of data blocks written since Create or Import.
func (store *Store) DirtyBlocks() int {
	if store.usable("dirty blocks") != nil {
		return 0
	}
	return store.dbm.Count() - ReservedBlocks
}
