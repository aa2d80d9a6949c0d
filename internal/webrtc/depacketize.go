package webrtc

// H264Depacketizer extracts NAL units from RTP H264 payloads. It keeps
// per-instance FU-A reassembly state and drops a fragment chain when the
// RTP sequence numbers show a lost packet in the middle of it.
type H264Depacketizer struct {
	fuaBuf    []byte
	fuaSeq    uint16
	fuaActive bool
}

// NewH264Depacketizer creates a depacketizer with its own reassembly
// buffer.
func NewH264Depacketizer() *H264Depacketizer {
	return &H264Depacketizer{}
}

// Depacketize extracts NAL units from one RTP payload. Handles single
// NAL, STAP-A, and FU-A packet types; anything else is ignored.
func (d *H264Depacketizer) Depacketize(seq uint16, payload []byte) [][]byte {
	if len(payload) < 1 {
		return nil
	}

	naluType := payload[0] & 0x1f

	switch {
	case naluType >= 1 && naluType <= 23:
		return [][]byte{payload}

	case naluType == 24:
		return d.depacketizeSTAPA(payload)

	case naluType == 28:
		return d.depacketizeFUA(seq, payload)

	default:
		return nil
	}
}

func (d *H264Depacketizer) depacketizeSTAPA(payload []byte) [][]byte {
	var nalus [][]byte
	offset := 1 // skip STAP-A header byte

	for offset+2 <= len(payload) {
		size := int(payload[offset])<<8 | int(payload[offset+1])
		offset += 2
		if size == 0 || offset+size > len(payload) {
			break
		}
		nalus = append(nalus, payload[offset:offset+size])
		offset += size
	}
	return nalus
}

func (d *H264Depacketizer) depacketizeFUA(seq uint16, payload []byte) [][]byte {
	if len(payload) < 2 {
		return nil
	}

	fnri := payload[0] & 0xe0 // F + NRI bits from FU indicator
	fuHeader := payload[1]
	start := fuHeader&0x80 != 0
	end := fuHeader&0x40 != 0
	naluType := fuHeader & 0x1f

	switch {
	case start:
		// Reconstruct NAL header: F+NRI from FU indicator, type from FU header.
		d.fuaBuf = []byte{fnri | naluType}
		d.fuaBuf = append(d.fuaBuf, payload[2:]...)
		d.fuaSeq = seq
		d.fuaActive = true

	case !d.fuaActive || seq != d.fuaSeq+1:
		// Orphan fragment or a gap in the chain: the NALU is unrecoverable.
		d.fuaBuf = nil
		d.fuaActive = false
		return nil

	default:
		d.fuaBuf = append(d.fuaBuf, payload[2:]...)
		d.fuaSeq = seq
	}

	if end && d.fuaActive {
		nalu := d.fuaBuf
		d.fuaBuf = nil
		d.fuaActive = false
		return [][]byte{nalu}
	}

	return nil
}
