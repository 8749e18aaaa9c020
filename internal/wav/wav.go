// Package wav is the WAV I/O collaborator: it de-interleaves a directory
// of per-audio-element .wav files into the channel-label-tagged PCM
// buffers internal/encoder's AddSamples expects, and (for round-trip
// tests only) re-materializes PCM back into a .wav file. Both are thin
// wrappers over github.com/go-audio/wav, the same library the teacher's
// own audio-capture surfaces ultimately bottom out on.
package wav

import (
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/iamf-tools/iamf-go/internal/iamferr"
	"github.com/iamf-tools/iamf-go/internal/obu"
)

// ChannelBuffer is one channel label's de-interleaved samples for an
// entire file, ready to be sliced into per-frame chunks by the caller.
type ChannelBuffer struct {
	Label   obu.ChannelLabel
	Samples []int32
}

// Reader reports the format of a .wav file decoded by ReadFile or Decode,
// which de-interleave the file's PCM according to a caller-supplied
// channel label order (the order audio_frame_metadata's channel_labels
// list gives for that audio element).
type Reader struct {
	SampleRate int
	BitDepth   int
	NumChans   int
}

// ReadFile decodes the entire file at path and returns one ChannelBuffer
// per label in labels, in order. The file's channel count must equal
// len(labels).
func ReadFile(path string, labels []obu.ChannelLabel) (*Reader, []ChannelBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, iamferr.Wrap(iamferr.InvalidArgument, "open wav file: "+err.Error())
	}
	defer f.Close()
	return Decode(f, labels)
}

// Decode is ReadFile's io.Reader-based core, exposed separately so tests
// can exercise it against an in-memory buffer without touching disk.
func Decode(r io.ReadSeeker, labels []obu.ChannelLabel) (*Reader, []ChannelBuffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, nil, iamferr.Wrap(iamferr.InvalidArgument, "not a valid wav file")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, nil, iamferr.Wrap(iamferr.Unknown, "decode wav pcm: "+err.Error())
	}
	numChans := int(d.NumChans)
	if numChans != len(labels) {
		return nil, nil, iamferr.Wrapf(iamferr.InvalidArgument,
			"wav file has %d channels, want %d matching channel_labels", numChans, len(labels))
	}
	if numChans == 0 {
		return nil, nil, iamferr.Wrap(iamferr.InvalidArgument, "wav file has zero channels")
	}
	if len(buf.Data)%numChans != 0 {
		return nil, nil, iamferr.Wrap(iamferr.InvalidArgument, "interleaved pcm length is not a multiple of the channel count")
	}

	out := make([]ChannelBuffer, numChans)
	framesPerChannel := len(buf.Data) / numChans
	for ch := range out {
		out[ch] = ChannelBuffer{Label: labels[ch], Samples: make([]int32, framesPerChannel)}
	}
	for i, v := range buf.Data {
		ch := i % numChans
		out[ch].Samples[i/numChans] = int32(v)
	}

	return &Reader{
		SampleRate: int(d.SampleRate),
		BitDepth:   int(d.BitDepth),
		NumChans:   numChans,
	}, out, nil
}

// Writer re-interleaves a set of ChannelBuffers (which must share a
// common sample count) and writes them out as a standard PCM .wav file.
// It exists purely so tests can re-materialize PCM fed into the encoder
// and assert a sample-accurate round trip; the production CLI path never
// writes WAV files.
type Writer struct {
	SampleRate int
	BitDepth   int
}

func (w Writer) WriteFile(path string, channels []ChannelBuffer) error {
	if err := validateChannelBuffers(channels); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return iamferr.Wrap(iamferr.Unknown, "create wav file: "+err.Error())
	}
	defer f.Close()
	return w.Encode(f, channels)
}

func validateChannelBuffers(channels []ChannelBuffer) error {
	if len(channels) == 0 {
		return iamferr.Wrap(iamferr.InvalidArgument, "no channels to write")
	}
	numFrames := len(channels[0].Samples)
	for _, c := range channels {
		if len(c.Samples) != numFrames {
			return iamferr.Wrap(iamferr.InvalidArgument, "channel buffers have mismatched sample counts")
		}
	}
	return nil
}

func (w Writer) Encode(out io.WriteSeeker, channels []ChannelBuffer) error {
	if err := validateChannelBuffers(channels); err != nil {
		return err
	}
	numFrames := len(channels[0].Samples)

	interleaved := make([]int, numFrames*len(channels))
	for frame := 0; frame < numFrames; frame++ {
		for ch, c := range channels {
			interleaved[frame*len(channels)+ch] = int(c.Samples[frame])
		}
	}

	enc := wav.NewEncoder(out, w.SampleRate, w.BitDepth, len(channels), 1)
	intBuf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: len(channels), SampleRate: w.SampleRate},
		Data:   interleaved,
	}
	if err := enc.Write(intBuf); err != nil {
		return iamferr.Wrap(iamferr.Unknown, "write wav pcm: "+err.Error())
	}
	if err := enc.Close(); err != nil {
		return iamferr.Wrap(iamferr.Unknown, "close wav encoder: "+err.Error())
	}
	return nil
}
