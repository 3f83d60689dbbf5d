package bigramdict

// Close stops background maintenance and closes the WAL. Unsaved state that
// is not in the WAL is lost. Calls after the first return nil.
func (d *Dictionary) Close() error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	cancels := d.cancels
	d.cancels = nil
	d.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	d.bg.Wait()

	if d.wal != nil {
		return d.wal.Close()
	}
	return nil
}
