// Package laz implements the chunked predictive compression engine used for
// LAZ point streams.
//
// The engine pairs per-field predictors with an adaptive arithmetic coder:
// each attribute stream (position deltas, intensity, color channels, GPS
// time) keeps a predictor context seeded from the previous points of the
// current chunk and encodes only the residual between the actual and the
// predicted value. Probability models update after every symbol.
//
// Chunks are independently decodable: every chunk resets all predictor and
// coder state, which is what makes chunk-granular seeking and parallel
// decode possible. The compression/seek tradeoff is deliberate: exact seek
// within a chunk costs a partial chunk decode.
//
// Only the las package consumes this package directly.
package laz

const (
	// bit model constants
	bmLengthShift = 13
	bmMaxCount    = 1 << bmLengthShift

	// symbol model constants
	dmLengthShift = 15
	dmMaxCount    = 1 << dmLengthShift
)

// bitModel is an adaptive binary probability model. The probability of bit
// zero is tracked as a fixed-point fraction with bmLengthShift bits.
type bitModel struct {
	bit0Prob    uint32
	bit0Count   uint32
	bitCount    uint32
	updateCycle uint32
	bitsUntil   uint32
}

func newBitModel() *bitModel {
	m := &bitModel{}
	m.reset()

	return m
}

// reset restores the model to its initial equiprobable state.
func (m *bitModel) reset() {
	m.bit0Count = 1
	m.bitCount = 2
	m.bit0Prob = 1 << (bmLengthShift - 1)
	m.updateCycle = 4
	m.bitsUntil = 4
}

// update recomputes the zero probability from the accumulated counts and
// stretches the adaptation interval.
func (m *bitModel) update() {
	m.bitCount += m.updateCycle
	if m.bitCount > bmMaxCount {
		m.bitCount = (m.bitCount + 1) >> 1
		m.bit0Count = (m.bit0Count + 1) >> 1
		if m.bit0Count == m.bitCount {
			m.bitCount++
		}
	}

	m.bit0Prob = (m.bit0Count << bmLengthShift) / m.bitCount

	m.updateCycle = (5 * m.updateCycle) >> 2
	if m.updateCycle > 64 {
		m.updateCycle = 64
	}
	m.bitsUntil = m.updateCycle
}

// symbolModel is an adaptive multi-symbol probability model over a fixed
// alphabet. The cumulative distribution is rebuilt periodically from the
// per-symbol counts.
type symbolModel struct {
	symbols      uint32
	distribution []uint32
	symbolCount  []uint32
	totalCount   uint32
	updateCycle  uint32
	symbolsUntil uint32
	maxCycle     uint32
}

func newSymbolModel(symbols uint32) *symbolModel {
	m := &symbolModel{
		symbols:      symbols,
		distribution: make([]uint32, symbols),
		symbolCount:  make([]uint32, symbols),
	}
	m.reset()

	return m
}

// reset restores the model to its initial equiprobable state.
func (m *symbolModel) reset() {
	for i := range m.symbolCount {
		m.symbolCount[i] = 1
	}
	m.totalCount = 0
	m.updateCycle = m.symbols
	m.maxCycle = (m.symbols + 6) << 3
	if m.maxCycle > dmMaxCount {
		m.maxCycle = dmMaxCount
	}
	m.update()
	m.symbolsUntil = (m.symbols + 6) >> 1
	m.updateCycle = m.symbolsUntil
}

// update rebuilds the cumulative distribution, halving the counts once the
// total exceeds the adaptation ceiling.
func (m *symbolModel) update() {
	m.totalCount += m.updateCycle
	if m.totalCount > dmMaxCount {
		m.totalCount = 0
		for i := range m.symbolCount {
			m.symbolCount[i] = (m.symbolCount[i] + 1) >> 1
			m.totalCount += m.symbolCount[i]
		}
	}

	sum := uint32(0)
	scale := uint32(0x80000000) / m.totalCount
	for i := range m.distribution {
		m.distribution[i] = (scale * sum) >> (31 - dmLengthShift)
		sum += m.symbolCount[i]
	}

	m.updateCycle = (5 * m.updateCycle) >> 2
	if m.updateCycle > m.maxCycle {
		m.updateCycle = m.maxCycle
	}
	m.symbolsUntil = m.updateCycle
}

// tally records one occurrence of sym, triggering a distribution rebuild
// when the adaptation interval expires.
func (m *symbolModel) tally(sym uint32) {
	m.symbolCount[sym]++
	m.symbolsUntil--
	if m.symbolsUntil == 0 {
		m.update()
	}
}
