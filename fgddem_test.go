package fgddem_test

import (
	"fmt"
	"strings"
)

// tileDocument returns a minimal FGD GML tile document with the given raw
// field values.
func tileDocument(meshCode, lowerCorner, upperCorner, gridHigh, startPoint string, tuples []string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Dataset xmlns="http://fgd.gsi.go.jp/spec/2008/FGD_GMLSchema" xmlns:gml="http://www.opengis.net/gml/3.2">
  <DEM gml:id="DEM001">
    <mesh>%s</mesh>
    <coverage gml:id="DEM001-1">
      <gml:boundedBy>
        <gml:Envelope srsName="fguuid:jgd2011.bl">
          <gml:lowerCorner>%s</gml:lowerCorner>
          <gml:upperCorner>%s</gml:upperCorner>
        </gml:Envelope>
      </gml:boundedBy>
      <gml:gridDomain>
        <gml:Grid dimension="2" gml:id="DEM001-2">
          <gml:limits>
            <gml:GridEnvelope>
              <gml:low>0 0</gml:low>
              <gml:high>%s</gml:high>
            </gml:GridEnvelope>
          </gml:limits>
          <gml:axisLabels>x y</gml:axisLabels>
        </gml:Grid>
      </gml:gridDomain>
      <gml:rangeSet>
        <gml:DataBlock>
          <gml:rangeParameters/>
          <gml:tupleList>
%s
          </gml:tupleList>
        </gml:DataBlock>
      </gml:rangeSet>
      <gml:coverageFunction>
        <gml:GridFunction>
          <gml:sequenceRule order="+x-y">Linear</gml:sequenceRule>
          <gml:startPoint>%s</gml:startPoint>
        </gml:GridFunction>
      </gml:coverageFunction>
    </coverage>
  </DEM>
</Dataset>
`, meshCode, lowerCorner, upperCorner, gridHigh, tupleLines(tuples), startPoint)
}

func tupleLines(tuples []string) string {
	return strings.Join(tuples, "\n")
}

// groundTuples returns n "地表面,value" tuples.
func groundTuples(n int, value string) []string {
	tuples := make([]string, n)
	for i := range tuples {
		tuples[i] = "地表面," + value
	}
	return tuples
}
