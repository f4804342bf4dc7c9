// Package fx holds the presentation collaborators the dialing core drives
// but never inspects: animation playback and ambient audio.
//
// The core only ever asks for an animation to start. It does not wait for
// one to finish before advancing the sequence; readiness is announced by the
// component that requested playback, through the handshake channel.
package fx
