package ingestion

const usgsFixture = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "id": "nc75012345",
      "properties": {"mag": 4.2, "place": "5km NE of Cupertino, CA", "time": 1772368200000, "title": "M 4.2 - 5km NE of Cupertino, CA", "type": "earthquake"},
      "geometry": {"type": "Point", "coordinates": [-122.0, 37.4, 8.1]}
    },
    {
      "type": "Feature",
      "id": "broken1",
      "properties": {"mag": 1.0, "place": "nowhere", "time": 1772368200000, "type": "earthquake"},
      "geometry": {"type": "Point", "coordinates": [-122.0]}
    },
    {
      "type": "Feature",
      "id": "ak0261234",
      "properties": {"mag": 2.9, "place": "70 km W of Anchorage, Alaska", "time": 1772368300000, "type": "earthquake"},
      "geometry": {"type": "Point", "coordinates": [-151.2, 61.1, 35.0]}
    }
  ]
}`

const nwsFixture = `{
  "type": "FeatureCollection",
  "features": [
    {
      "id": "https://api.weather.gov/alerts/urn:oid:2.49.0.1.840.0.flood",
      "type": "Feature",
      "geometry": {"type": "Polygon", "coordinates": [[[-122.1, 37.3], [-122.0, 37.3], [-122.0, 37.4], [-122.1, 37.4], [-122.1, 37.3]]]},
      "properties": {
        "id": "urn:oid:2.49.0.1.840.0.flood",
        "event": "Flood Warning",
        "sent": "2026-03-01T12:00:00-08:00",
        "effective": "2026-03-01T12:00:00-08:00",
        "ends": "2026-03-02T06:00:00-08:00",
        "expires": "2026-03-01T20:00:00-08:00",
        "parameters": {}
      }
    },
    {
      "id": "https://api.weather.gov/alerts/urn:oid:2.49.0.1.840.0.wind",
      "type": "Feature",
      "geometry": null,
      "properties": {
        "id": "urn:oid:2.49.0.1.840.0.wind",
        "event": "High Wind Warning",
        "effective": "2026-03-01T10:00:00Z",
        "ends": null,
        "expires": "2026-03-01T22:00:00Z",
        "parameters": {"maxWindGust": ["60 MPH"], "windSpeed": ["35 MPH"]}
      }
    }
  ]
}`
