package util

// WaitError waits for either an error on the error channel, or for the
// done channel to close. It returns the error if one is received
// first, and nil otherwise.
//
// This handles a race condition where the done channel could have been
// closed as a result of an irrecoverable error being thrown, so that
// when the scheduler yields control back to this goroutine, both
// channels are available.
func WaitError(errChan <-chan error, done <-chan struct{}) error {
	select {
	case err := <-errChan:
		return err
	case <-done:
		select {
		case err := <-errChan:
			return err
		default:
			return nil
		}
	}
}
