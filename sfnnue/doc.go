/*
Package sfnnue implements Corvid's NNUE (Efficiently Updatable Neural
Network) evaluator.

The incremental accumulator machinery (feature transformer, pair
activation, Finny-table refresh cache) is adapted from Stockfish's NNUE
implementation. The evaluator on top of it is not Stockfish's: a single
network (no separate big/small pair, no auxiliary threat-input feature
set) whose layer stack runs two float dense hidden layers and one float
dense output layer per output bucket, with an explicit permutation table
reordering the L1 pair-activation output for density before the first
layer consumes it.

# Architecture

The HalfKAv2_hm feature set (horizontally mirrored king-relative piece
placement) feeds a feature transformer that keeps one int16 accumulator
per perspective. Transform pair-activates the two accumulator halves into
an L1 vector; NetworkArchitecture.Propagate permutes that vector, then
runs it through AffineTransform/ClippedReLU/SqrClippedReLU float layers to
a centipawn score. Eight layer stacks are selected by remaining piece
count, mirroring Stockfish's output-bucket selection.

# Usage

	eval, err := sfnnue.NewEvaluator("nn-xxx.nnue")
	if err != nil {
		log.Fatal(err)
	}

	psqt, positional := eval.Network.Evaluate(accumulation, psqtAccumulation, sideToMove, pieceCount)
*/
package sfnnue
