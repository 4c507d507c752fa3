package game

// Catalogue is the fixed enumeration of every UCI move label the network's
// policy head can produce: every queen/knight move between two squares, plus
// every pawn promotion. Order and size (1968 entries) are reproduced
// bit-for-bit from the reference AlphaZero-chess encoding (see
// original_source/src/chessrl/netencoder.py's get_uci_labels) so that
// trained weights keyed on this ordering stay usable.
var Catalogue = buildCatalogue()

// LabelIndex maps a UCI label to its position in Catalogue. Built once at
// package init.
var LabelIndex = buildLabelIndex()

const catalogueSize = 1968

var letters = [8]byte{'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h'}

func buildCatalogue() []string {
	labels := make([]string, 0, catalogueSize)

	type sq struct{ file, rank int }

	for l1 := 0; l1 < 8; l1++ {
		for n1 := 0; n1 < 8; n1++ {
			var dests []sq
			for t := 0; t < 8; t++ {
				dests = append(dests, sq{t, n1}) // same rank (rook-like file moves)
			}
			for t := 0; t < 8; t++ {
				dests = append(dests, sq{l1, t}) // same file (rook-like rank moves)
			}
			for t := -7; t < 8; t++ {
				dests = append(dests, sq{l1 + t, n1 + t}) // diagonal
			}
			for t := -7; t < 8; t++ {
				dests = append(dests, sq{l1 + t, n1 - t}) // anti-diagonal
			}
			knightDeltas := [8][2]int{
				{-2, -1}, {-1, -2}, {-2, 1}, {1, -2},
				{2, -1}, {-1, 2}, {2, 1}, {1, 2},
			}
			for _, d := range knightDeltas {
				dests = append(dests, sq{l1 + d[0], n1 + d[1]})
			}

			for _, d := range dests {
				if d.file == l1 && d.rank == n1 {
					continue
				}
				if d.file < 0 || d.file > 7 || d.rank < 0 || d.rank > 7 {
					continue
				}
				move := string(letters[l1]) + itoa1(n1+1) + string(letters[d.file]) + itoa1(d.rank+1)
				labels = append(labels, move)
			}
		}
	}

	promotedTo := [4]byte{'q', 'r', 'b', 'n'}
	for l1 := 0; l1 < 8; l1++ {
		letter := letters[l1]
		for _, p := range promotedTo {
			labels = append(labels, string(letter)+"2"+string(letter)+"1"+string(p))
			labels = append(labels, string(letter)+"7"+string(letter)+"8"+string(p))
			if l1 > 0 {
				left := letters[l1-1]
				labels = append(labels, string(letter)+"2"+string(left)+"1"+string(p))
				labels = append(labels, string(letter)+"7"+string(left)+"8"+string(p))
			}
			if l1 < 7 {
				right := letters[l1+1]
				labels = append(labels, string(letter)+"2"+string(right)+"1"+string(p))
				labels = append(labels, string(letter)+"7"+string(right)+"8"+string(p))
			}
		}
	}
	return labels
}

func itoa1(n int) string {
	return string(byte('0' + n))
}

func buildLabelIndex() map[string]int {
	idx := make(map[string]int, len(Catalogue))
	for i, l := range Catalogue {
		idx[l] = i
	}
	return idx
}
