package codec

import (
	"bytes"
	"testing"

	"github.com/iamf-tools/iamf-go/internal/obu"
)

func TestLPCMEncodeFrameLittleEndian16(t *testing.T) {
	l := LPCM{SampleFormat: obu.LPCMLittleEndianInt, SampleSize: 16, SampleRate: 48000}
	got, err := l.EncodeFrame([]int32{0x0102, -1}, 1)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	want := []byte{0x02, 0x01, 0xff, 0xff}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestLPCMEncodeFrameBigEndian24(t *testing.T) {
	l := LPCM{SampleFormat: obu.LPCMBigEndianInt, SampleSize: 24, SampleRate: 48000}
	got, err := l.EncodeFrame([]int32{0x010203}, 1)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	want := []byte{0x01, 0x02, 0x03}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestLPCMRejectsUnalignedSampleSize(t *testing.T) {
	l := LPCM{SampleFormat: obu.LPCMLittleEndianInt, SampleSize: 20, SampleRate: 48000}
	if _, err := l.EncodeFrame([]int32{0}, 1); err == nil {
		t.Fatal("expected a non-byte-aligned sample size to be rejected")
	}
}

func TestLPCMDecoderConfig(t *testing.T) {
	l := LPCM{SampleFormat: obu.LPCMBigEndianInt, SampleSize: 16, SampleRate: 44100}
	cfg := l.DecoderConfig()
	if cfg.LPCM == nil || cfg.LPCM.SampleRate != 44100 || cfg.LPCM.SampleSize != 16 {
		t.Errorf("got %+v", cfg.LPCM)
	}
}

func TestOpusEncodeFrameRequiresEncoder(t *testing.T) {
	o := Opus{Version: 1, PreSkip: 312, InputSampleRate: 48000}
	if _, err := o.EncodeFrame([]int32{0}, 2); err == nil {
		t.Fatal("expected EncodeFrame without an attached encoder to fail")
	}
}

func TestBuildAudioSpecificConfigRejectsUnsupportedChannelCount(t *testing.T) {
	if _, err := BuildAudioSpecificConfig(48000, 8); err == nil {
		t.Fatal("expected an 8-channel AudioSpecificConfig request to be rejected")
	}
}

func TestBuildAudioSpecificConfigLayout(t *testing.T) {
	asc, err := BuildAudioSpecificConfig(48000, 2)
	if err != nil {
		t.Fatalf("BuildAudioSpecificConfig: %v", err)
	}
	if len(asc) != 2 {
		t.Fatalf("got %d bytes, want 2", len(asc))
	}
	objectType := asc[0] >> 3
	sampleRateIndex := (asc[0]&0x07)<<1 | asc[1]>>7
	channelConfig := (asc[1] >> 3) & 0x0f
	if objectType != 2 {
		t.Errorf("got object type %d, want 2 (AAC-LC)", objectType)
	}
	if sampleRateIndex != 3 { // 48000 Hz is index 3
		t.Errorf("got sample rate index %d, want 3", sampleRateIndex)
	}
	if channelConfig != 2 {
		t.Errorf("got channel config %d, want 2", channelConfig)
	}
}
