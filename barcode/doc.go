// Package barcode encodes short ASCII strings as CODE128 linear barcode
// symbols and decodes them back.
//
// A Symbol is described as an ordered list of bar and space runs measured in
// modules. The run list always opens and closes with a quiet zone and carries
// the start pattern, data codewords, the modulo-103 check codeword and the stop
// pattern in between. Code set C is used to pack digit pairs; code sets A and B
// cover the rest of ASCII and are switched greedily by the length of the run
// they can encode.
package barcode
