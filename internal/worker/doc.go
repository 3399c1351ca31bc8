// Package worker implements the Acceptor & Worker Pool of §4.3: a single
// acceptor reads the first message off each new connection and enqueues a
// task into a bounded FIFO; a fixed pool of workers dequeues tasks and then
// owns each connection for its entire session lifetime.
package worker
