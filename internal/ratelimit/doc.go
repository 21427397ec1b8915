// Package ratelimit implements the process-wide gate in front of every
// remote catalogue call: a per-second burst cap plus a sustained
// sliding window, with a Retry-After barrier. The sustained window and
// the barrier live in a shared coordination store; the burst cap is a
// process-local token bucket of capacity B refilling at B per second,
// so a trailing one-second span can see more than B permits.
package ratelimit
