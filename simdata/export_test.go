package simdata

var WriteTo = writeTo
