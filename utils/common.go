package utils

// SmallestNormal is the smallest positive normalized float64
const SmallestNormal = 0x1p-1022
