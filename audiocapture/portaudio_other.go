//go:build !portaudio

package audiocapture

func init() {
	registerBackend("portaudio", func() (Host, error) { return nil, ErrUnsupported })
}
