package transformers

// This package defines common methods and operations for transforming raw gantry (field scanner) sensor captures in to georeferenced, metadata-rich products. Common operations include: converting raw stereo captures to GeoTIFF files, cleaning LemnaTec sensor metadata in to JSON-LD documents, fetching reference data from a BETYdb instance, and gathering, staging and scrubbing capture files.
