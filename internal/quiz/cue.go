package quiz

// CueName identifies a feedback sound
type CueName string

const (
	CueClick         CueName = "click"
	CueCorrect       CueName = "correct"
	CueWrong         CueName = "wrong"
	CueFinishSuccess CueName = "finish_success"
	CueFinishFail    CueName = "finish_fail"
	CueOptionAudio   CueName = "option_audio"
)

// Cue is a fire-and-forget playback request emitted by a transition.
// Source is set only for cues that play content audio.
type Cue struct {
	Name   CueName `json:"name"`
	Source string  `json:"source,omitempty"`
}

func cue(name CueName) *Cue {
	return &Cue{Name: name}
}

func finishCue(passed bool) *Cue {
	if passed {
		return cue(CueFinishSuccess)
	}
	return cue(CueFinishFail)
}
