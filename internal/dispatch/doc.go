// Package dispatch implements the frame dispatch stage: the single consumer
// of camera frames and operator controls.
//
// Frames and controls arrive on the same input queue, so a control observed
// after frame F is forwarded after F and before any frame captured after the
// control was issued. Downstream consumers rely on that position as the only
// synchronisation point for starting, pausing and ending a stacking session.
//
// Outputs: live display (every frame), stacking (while stacking is active),
// debug (while stacking is active and the session asked for its inputs to be
// saved) and an optional plate-solving output that only receives frames when
// no stacking session is in process.
package dispatch
