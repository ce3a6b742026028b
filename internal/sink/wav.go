package sink

// wavRiffChunk, wavFmtChunk, and wavDataChunk mirror the canonical WAV
// layout (grounded on msiner-sdrplay-go's helpers/wav package), trimmed to
// the 16-bit PCM mono case the file sink writes.
type wavRiffChunk struct {
	ChunkID   [4]byte
	ChunkSize uint32
	Format    [4]byte
}

type wavFmtChunk struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

type wavDataChunk struct {
	ChunkID   [4]byte
	ChunkSize uint32
}

type wavHeaderStruct struct {
	Riff wavRiffChunk
	Fmt  wavFmtChunk
	Data wavDataChunk
}

const wavLPCM = 1

// wavHeader builds a complete little-endian WAV header for numFrames mono
// samples of bytesPerSample width at sampleRate.
func wavHeader(sampleRate uint32, numChannels uint16, bytesPerSample uint8, numFrames uint32) wavHeaderStruct {
	dataBytes := numFrames * uint32(bytesPerSample) * uint32(numChannels)
	blockAlign := uint16(bytesPerSample) * numChannels

	h := wavHeaderStruct{}
	h.Riff.ChunkID = [4]byte{'R', 'I', 'F', 'F'}
	h.Riff.Format = [4]byte{'W', 'A', 'V', 'E'}
	h.Riff.ChunkSize = 4 + (8 + 16) + (8 + dataBytes)

	h.Fmt.ChunkID = [4]byte{'f', 'm', 't', ' '}
	h.Fmt.ChunkSize = 16
	h.Fmt.AudioFormat = wavLPCM
	h.Fmt.NumChannels = numChannels
	h.Fmt.SampleRate = sampleRate
	h.Fmt.ByteRate = sampleRate * uint32(blockAlign)
	h.Fmt.BlockAlign = blockAlign
	h.Fmt.BitsPerSample = uint16(bytesPerSample) * 8

	h.Data.ChunkID = [4]byte{'d', 'a', 't', 'a'}
	h.Data.ChunkSize = dataBytes

	return h
}
