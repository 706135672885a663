/*
Package ms3 is the 32-bit 3D math kit of the acceleration-structure
builders. It is built around the Vec type with package-level functions
reserved for the common vector operations, which keeps long expression
chains readable.

The name roughly stands for (m)ath for (s)hort floats in (3)D.
"short" since there are no native 16 bit floats in Go.
*/
package ms3
