package laz

import "math/bits"

// lowBitsModelCap is the widest remainder that is fully model-coded. Wider
// remainders get their low eight bits model-coded and the rest written raw.
const lowBitsModelCap = 8

// integerCompressor encodes prediction residuals. The residual's magnitude
// interval is selected through an adaptive model (one per context), the sign
// through a shared bit model, and the remainder bits through small
// per-interval models so that frequent residual values adapt quickly.
//
// Compression and decompression instances must consume exactly the same
// sequence of (prediction, context) pairs to stay in sync.
type integerCompressor struct {
	corrBits uint32

	mK    []*symbolModel // interval selector, one model per context
	mSign *bitModel
	mCorr []*symbolModel // remainder models indexed by interval k
}

// newIntegerCompressor creates a compressor for residuals of values up to
// corrBits wide, with the given number of interval-selector contexts.
func newIntegerCompressor(corrBits, contexts uint32) *integerCompressor {
	ic := &integerCompressor{
		corrBits: corrBits,
		mK:       make([]*symbolModel, contexts),
		mSign:    newBitModel(),
		mCorr:    make([]*symbolModel, corrBits+1),
	}

	for i := range ic.mK {
		ic.mK[i] = newSymbolModel(corrBits + 1)
	}
	for k := uint32(2); k <= corrBits; k++ {
		width := k - 1
		if width > lowBitsModelCap {
			width = lowBitsModelCap
		}
		ic.mCorr[k] = newSymbolModel(1 << width)
	}

	return ic
}

// compress encodes real against pred under the given context.
func (ic *integerCompressor) compress(enc *arithmeticEncoder, pred, real int32, ctx uint32) {
	c := int64(real) - int64(pred)

	if c == 0 {
		enc.encodeSymbol(ic.mK[ctx], 0)
		return
	}

	neg := c < 0
	var mag uint32
	if neg {
		mag = uint32(-c)
	} else {
		mag = uint32(c)
	}

	k := uint32(bits.Len32(mag))
	enc.encodeSymbol(ic.mK[ctx], k)

	if neg {
		enc.encodeBit(ic.mSign, 1)
	} else {
		enc.encodeBit(ic.mSign, 0)
	}

	// the leading one of mag is implied by k; encode the k-1 remainder bits
	width := k - 1
	if width == 0 {
		return
	}
	rem := mag & ((1 << width) - 1)

	if width <= lowBitsModelCap {
		enc.encodeSymbol(ic.mCorr[k], rem)
		return
	}

	enc.encodeSymbol(ic.mCorr[k], rem&((1<<lowBitsModelCap)-1))
	enc.writeBits(uint(width-lowBitsModelCap), rem>>lowBitsModelCap)
}

// decompress decodes the next residual and applies it to pred.
func (ic *integerCompressor) decompress(dec *arithmeticDecoder, pred int32, ctx uint32) int32 {
	k := dec.decodeSymbol(ic.mK[ctx])
	if k == 0 {
		return pred
	}

	neg := dec.decodeBit(ic.mSign) == 1

	mag := uint32(1) << (k - 1)
	width := k - 1
	if width > 0 {
		if width <= lowBitsModelCap {
			mag |= dec.decodeSymbol(ic.mCorr[k])
		} else {
			low := dec.decodeSymbol(ic.mCorr[k])
			high := dec.readBits(uint(width - lowBitsModelCap))
			mag |= high<<lowBitsModelCap | low
		}
	}

	c := int64(mag)
	if neg {
		c = -c
	}

	return int32(int64(pred) + c)
}
