package lazydb

// Object is a Go type that persists itself as the leaves of one
// container.  Implementations typically hold cached field values
// next to the container, write them out in Store, and drop them in
// ClearCache so the next access reads from disk again.
type Object interface {
	Container() *Container
	Store() error
	ClearCache()
}

// StoreAll stores every object, stopping at the first failure.
func StoreAll(objects ...Object) (err error) {
	for _, obj := range objects {
		err = obj.Store()
		if err != nil {
			return
		}
	}
	return
}
